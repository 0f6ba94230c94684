package repositories

import (
	"context"
	"fmt"
	"sync"

	"ecofinds/internal/models"

	"github.com/google/uuid"
)

// MockPurchaseRepository is an in-memory implementation of PurchaseRepository.
type MockPurchaseRepository struct {
	purchases map[string]models.Purchase
	mu        sync.RWMutex
}

// NewMockPurchaseRepository creates a new instance of MockPurchaseRepository.
func NewMockPurchaseRepository() *MockPurchaseRepository {
	return &MockPurchaseRepository{
		purchases: make(map[string]models.Purchase),
	}
}

// CreateBatch stores every purchase, or none if any ID collides.
func (r *MockPurchaseRepository) CreateBatch(ctx context.Context, purchases []models.Purchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range purchases {
		if purchases[i].ID == "" {
			purchases[i].ID = uuid.New().String()
		}
		if _, exists := r.purchases[purchases[i].ID]; exists {
			return fmt.Errorf("purchase with ID %s already exists: %w", purchases[i].ID, ErrConstraintViolation)
		}
	}
	for _, p := range purchases {
		p.Product = nil
		r.purchases[p.ID] = p
	}
	return nil
}

// GetByUser returns the user's purchases, most recent first.
func (r *MockPurchaseRepository) GetByUser(ctx context.Context, userID string) ([]models.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]models.Purchase, 0)
	for _, p := range r.purchases {
		if p.UserID == userID {
			list = append(list, p)
		}
	}
	sortPurchasesNewestFirst(list)
	return list, nil
}
