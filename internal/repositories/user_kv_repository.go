package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ecofinds/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// kvUser carries the password hash, which models.User keeps out of JSON.
type kvUser struct {
	models.User
	PasswordHash string `json:"password_hash"`
}

func (u kvUser) model() *models.User {
	user := u.User
	user.PasswordHash = u.PasswordHash
	return &user
}

// KVUserRepository stores users in Redis. An email -> id hash guards uniqueness.
type KVUserRepository struct {
	rdb    *redis.Client
	users  kvCollection[kvUser]
	emails string
}

// NewKVUserRepository creates a Redis-backed UserRepository.
func NewKVUserRepository(rdb *redis.Client, prefix string) *KVUserRepository {
	users := newKVCollection[kvUser](rdb, prefix, "users")
	return &KVUserRepository{
		rdb:    rdb,
		users:  users,
		emails: users.key + ":email",
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *KVUserRepository) claimEmail(ctx context.Context, email, id string) error {
	ok, err := r.rdb.HSetNX(ctx, r.emails, emailKey(email), id).Result()
	if err != nil {
		return fmt.Errorf("redis HSETNX %s: %w", r.emails, err)
	}
	if !ok {
		return fmt.Errorf("email %s already registered: %w", email, ErrConstraintViolation)
	}
	return nil
}

// Create stores a new user after claiming its email.
func (r *KVUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.claimEmail(ctx, user.Email, user.ID); err != nil {
		return err
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if err := r.users.putNew(ctx, user.ID, kvUser{User: *user, PasswordHash: user.PasswordHash}); err != nil {
		r.rdb.HDel(ctx, r.emails, emailKey(user.Email))
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID returns a user by ID.
func (r *KVUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, err := r.users.get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user with ID %s: %w", id, err)
	}
	return u.model(), nil
}

// GetByEmail resolves the email index, then loads the user.
func (r *KVUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	id, err := r.rdb.HGet(ctx, r.emails, emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("user with email %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis HGET %s: %w", r.emails, err)
	}
	return r.GetByID(ctx, id)
}

// Update replaces a stored user, moving the email claim if the email changed.
func (r *KVUserRepository) Update(ctx context.Context, user *models.User) error {
	existing, err := r.users.get(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("user with ID %s not found for update: %w", user.ID, err)
	}
	if emailKey(existing.Email) != emailKey(user.Email) {
		if err := r.claimEmail(ctx, user.Email, user.ID); err != nil {
			return err
		}
		r.rdb.HDel(ctx, r.emails, emailKey(existing.Email))
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now()
	return r.users.put(ctx, user.ID, kvUser{User: *user, PasswordHash: user.PasswordHash})
}
