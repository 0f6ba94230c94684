package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecofinds/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KVCartRepository stores cart lines in a Redis hash. A second hash maps
// "userID|productID" to the line ID so each pair owns at most one line.
type KVCartRepository struct {
	rdb   *redis.Client
	items kvCollection[models.CartItem]
	pairs string
}

// NewKVCartRepository creates a Redis-backed CartRepository.
func NewKVCartRepository(rdb *redis.Client, prefix string) *KVCartRepository {
	items := newKVCollection[models.CartItem](rdb, prefix, "cart_items")
	return &KVCartRepository{rdb: rdb, items: items, pairs: items.key + ":pair"}
}

func pairKey(userID, productID string) string {
	return userID + "|" + productID
}

// GetByUser returns the user's cart lines in the order they were added.
func (r *KVCartRepository) GetByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	items, err := r.items.filter(ctx, func(c models.CartItem) bool { return c.UserID == userID })
	if err != nil {
		return nil, fmt.Errorf("failed to get cart of user %s: %w", userID, err)
	}
	sortCartOldestFirst(items)
	return items, nil
}

// GetByID returns a cart line by ID.
func (r *KVCartRepository) GetByID(ctx context.Context, id string) (*models.CartItem, error) {
	item, err := r.items.get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cart item with ID %s: %w", id, err)
	}
	return item, nil
}

// Create claims the (user, product) pair and stores the line.
func (r *KVCartRepository) Create(ctx context.Context, item *models.CartItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	pair := pairKey(item.UserID, item.ProductID)
	ok, err := r.rdb.HSetNX(ctx, r.pairs, pair, item.ID).Result()
	if err != nil {
		return fmt.Errorf("redis HSETNX %s: %w", r.pairs, err)
	}
	if !ok {
		return fmt.Errorf("cart line for product %s already exists: %w", item.ProductID, ErrConstraintViolation)
	}
	stored := *item
	stored.Product = nil
	if err := r.items.putNew(ctx, item.ID, stored); err != nil {
		r.rdb.HDel(ctx, r.pairs, pair)
		return fmt.Errorf("failed to create cart item: %w", err)
	}
	return nil
}

// UpdateQuantity sets the quantity of a cart line.
func (r *KVCartRepository) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	item, err := r.items.get(ctx, id)
	if err != nil {
		return fmt.Errorf("cart item with ID %s not found for update: %w", id, err)
	}
	item.Quantity = quantity
	return r.items.put(ctx, id, *item)
}

func (r *KVCartRepository) remove(ctx context.Context, items []models.CartItem) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, 0, len(items))
	pairs := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
		pairs = append(pairs, pairKey(item.UserID, item.ProductID))
	}
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, r.items.key, ids...)
		pipe.HDel(ctx, r.pairs, pairs...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete cart items: %w", err)
	}
	return nil
}

// Delete removes a cart line.
func (r *KVCartRepository) Delete(ctx context.Context, id string) error {
	item, err := r.items.get(ctx, id)
	if err != nil {
		return fmt.Errorf("cart item with ID %s not found for deletion: %w", id, err)
	}
	return r.remove(ctx, []models.CartItem{*item})
}

// DeleteByIDs removes the given cart lines; unknown ids are skipped.
func (r *KVCartRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	items := make([]models.CartItem, 0, len(ids))
	for _, id := range ids {
		item, err := r.items.get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		items = append(items, *item)
	}
	return r.remove(ctx, items)
}

// DeleteByProduct removes every cart line that references productID.
func (r *KVCartRepository) DeleteByProduct(ctx context.Context, productID string) (int, error) {
	items, err := r.items.filter(ctx, func(c models.CartItem) bool { return c.ProductID == productID })
	if err != nil {
		return 0, fmt.Errorf("failed to get cart items of product %s: %w", productID, err)
	}
	if err := r.remove(ctx, items); err != nil {
		return 0, err
	}
	return len(items), nil
}
