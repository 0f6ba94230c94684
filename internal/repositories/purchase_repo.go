package repositories

import (
	"context"

	"ecofinds/internal/models"
)

// PurchaseRepository defines the interface for the purchase ledger.
// There is no update or delete: ledger lines are immutable.
type PurchaseRepository interface {
	// CreateBatch stores all purchases or none of them.
	CreateBatch(ctx context.Context, purchases []models.Purchase) error
	// GetByUser returns the user's purchases, most recent first.
	GetByUser(ctx context.Context, userID string) ([]models.Purchase, error)
}
