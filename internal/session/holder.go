// Package session tracks who is signed in on a client and keeps user-scoped
// views in step with sign-in, sign-out and user switches.
package session

import (
	"context"
	"fmt"
	"sync"

	"ecofinds/internal/models"
	"ecofinds/internal/services"

	"github.com/sirupsen/logrus"
)

// State is the sign-in state of a Holder.
type State int

const (
	SignedOut State = iota
	SignedIn
)

func (s State) String() string {
	if s == SignedIn {
		return "signed-in"
	}
	return "signed-out"
}

// Identity is the part of services.AuthService a Holder needs.
type Identity interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, upd services.ProfileUpdate, avatar *services.Upload) (*models.User, error)
}

// Listener is told about every transition. user is nil after sign-out.
type Listener func(ctx context.Context, user *models.User)

// Holder owns the current user of one client and persists a pointer to it
// so the session survives restarts.
type Holder struct {
	identity Identity
	store    Store

	mu        sync.RWMutex
	current   *models.User
	listeners []Listener
}

// NewHolder creates a signed-out Holder. Call Restore to pick up a persisted session.
func NewHolder(identity Identity, store Store) *Holder {
	return &Holder{identity: identity, store: store}
}

// Subscribe registers l. Listeners run in registration order.
func (h *Holder) Subscribe(l Listener) {
	h.mu.Lock()
	h.listeners = append(h.listeners, l)
	h.mu.Unlock()
}

// State reports whether a user is signed in.
func (h *Holder) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return SignedOut
	}
	return SignedIn
}

// Current returns a copy of the signed-in user, or nil.
func (h *Holder) Current() *models.User {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return nil
	}
	u := *h.current
	return &u
}

// UserID returns the signed-in user's ID, or "".
func (h *Holder) UserID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return ""
	}
	return h.current.ID
}

// Restore loads the persisted session, if any. A pointer to a user that no
// longer exists is discarded.
func (h *Holder) Restore(ctx context.Context) error {
	id, err := h.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if id == "" {
		h.transition(ctx, nil)
		return nil
	}
	user, err := h.identity.GetProfile(ctx, id)
	if services.IsNotFound(err) {
		logrus.WithField("user_id", id).Warn("Discarding session of unknown user")
		if err := h.store.Clear(ctx); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		h.transition(ctx, nil)
		return nil
	}
	if err != nil {
		return err
	}
	h.transition(ctx, user)
	return nil
}

// Register creates an account and signs it in.
func (h *Holder) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	user, err := h.identity.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	return user, h.signIn(ctx, user)
}

// Login verifies credentials and signs the user in, replacing any current user.
func (h *Holder) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := h.identity.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return user, h.signIn(ctx, user)
}

func (h *Holder) signIn(ctx context.Context, user *models.User) error {
	if err := h.store.Save(ctx, user.ID); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	h.transition(ctx, user)
	return nil
}

// Logout forgets the current user, both in memory and in the store.
func (h *Holder) Logout(ctx context.Context) error {
	if err := h.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	h.transition(ctx, nil)
	return nil
}

// UpdateProfile edits the signed-in user's profile. As with
// services.AuthService.UpdateProfile, a non-nil user may come back with an
// upload error; the in-memory profile is refreshed in that case too.
func (h *Holder) UpdateProfile(ctx context.Context, upd services.ProfileUpdate, avatar *services.Upload) (*models.User, error) {
	id := h.UserID()
	if id == "" {
		return nil, services.ErrNotSignedIn
	}
	user, err := h.identity.UpdateProfile(ctx, id, upd, avatar)
	if user != nil {
		h.mu.Lock()
		if h.current != nil && h.current.ID == user.ID {
			u := *user
			h.current = &u
		}
		h.mu.Unlock()
	}
	return user, err
}

func (h *Holder) transition(ctx context.Context, user *models.User) {
	h.mu.Lock()
	if user != nil {
		u := *user
		h.current = &u
	} else {
		h.current = nil
	}
	listeners := append([]Listener(nil), h.listeners...)
	h.mu.Unlock()

	for _, l := range listeners {
		if user == nil {
			l(ctx, nil)
			continue
		}
		u := *user
		l(ctx, &u)
	}
}
