package session

import (
	"context"
	"sync"

	"ecofinds/internal/models"

	"github.com/sirupsen/logrus"
)

// Fetch loads the data of a view for one user.
type Fetch[T any] func(ctx context.Context, userID string) (T, error)

// View caches user-scoped data (a cart, a purchase history, a seller's
// listings). It refetches whenever the signed-in user changes and drops its
// data on sign-out, so it never shows one user's data to another.
type View[T any] struct {
	name  string
	fetch Fetch[T]

	mu     sync.RWMutex
	userID string
	data   T
	err    error
}

// NewView creates a view and subscribes it to h.
func NewView[T any](h *Holder, name string, fetch Fetch[T]) *View[T] {
	v := &View[T]{name: name, fetch: fetch}
	h.Subscribe(v.onTransition)
	return v
}

func (v *View[T]) onTransition(ctx context.Context, user *models.User) {
	if user == nil {
		v.reset()
		return
	}
	v.load(ctx, user.ID)
}

func (v *View[T]) reset() {
	var zero T
	v.mu.Lock()
	v.userID, v.data, v.err = "", zero, nil
	v.mu.Unlock()
}

func (v *View[T]) load(ctx context.Context, userID string) {
	data, err := v.fetch(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"view": v.name, "user_id": userID}).Warn("Failed to load view")
		var zero T
		data = zero
	}
	v.mu.Lock()
	v.userID, v.data, v.err = userID, data, err
	v.mu.Unlock()
}

// Refresh refetches the data for the user the view currently belongs to.
func (v *View[T]) Refresh(ctx context.Context) error {
	v.mu.RLock()
	userID := v.userID
	v.mu.RUnlock()
	if userID == "" {
		return nil
	}
	v.load(ctx, userID)
	return v.Err()
}

// Data returns the cached data. It is the zero value while signed out.
func (v *View[T]) Data() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.data
}

// UserID returns the user the data belongs to.
func (v *View[T]) UserID() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.userID
}

// Err returns the error of the last load.
func (v *View[T]) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.err
}
