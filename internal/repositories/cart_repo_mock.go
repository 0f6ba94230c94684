package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ecofinds/internal/models"

	"github.com/google/uuid"
)

// MockCartRepository is an in-memory implementation of CartRepository.
type MockCartRepository struct {
	items map[string]models.CartItem
	mu    sync.RWMutex
}

// NewMockCartRepository creates a new instance of MockCartRepository.
func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{
		items: make(map[string]models.CartItem),
	}
}

// GetByUser returns the user's cart lines in the order they were added.
func (r *MockCartRepository) GetByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := make([]models.CartItem, 0)
	for _, item := range r.items {
		if item.UserID == userID {
			lines = append(lines, item)
		}
	}
	sortCartOldestFirst(lines)
	return lines, nil
}

// GetByID returns a cart line by ID.
func (r *MockCartRepository) GetByID(ctx context.Context, id string) (*models.CartItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("cart item with ID %s: %w", id, ErrNotFound)
	}
	return &item, nil
}

// Create adds a cart line.
func (r *MockCartRepository) Create(ctx context.Context, item *models.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.UserID == item.UserID && existing.ProductID == item.ProductID {
			return fmt.Errorf("cart line for product %s already exists: %w", item.ProductID, ErrConstraintViolation)
		}
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	stored := *item
	stored.Product = nil
	r.items[item.ID] = stored
	return nil
}

// UpdateQuantity sets the quantity of a cart line.
func (r *MockCartRepository) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("cart item with ID %s not found for update: %w", id, ErrNotFound)
	}
	item.Quantity = quantity
	r.items[id] = item
	return nil
}

// Delete removes a cart line.
func (r *MockCartRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("cart item with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

// DeleteByIDs removes the given cart lines.
func (r *MockCartRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		delete(r.items, id)
	}
	return nil
}

// DeleteByProduct removes every cart line that references productID.
func (r *MockCartRepository) DeleteByProduct(ctx context.Context, productID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, item := range r.items {
		if item.ProductID == productID {
			delete(r.items, id)
			removed++
		}
	}
	return removed, nil
}
