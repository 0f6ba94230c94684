package repositories

import (
	"context"
	"fmt"

	"ecofinds/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMPurchaseRepository is a GORM implementation of PurchaseRepository.
type GORMPurchaseRepository struct {
	db *gorm.DB
}

// NewGORMPurchaseRepository creates a new instance of GORMPurchaseRepository.
func NewGORMPurchaseRepository(db *gorm.DB) *GORMPurchaseRepository {
	return &GORMPurchaseRepository{db: db}
}

// CreateBatch inserts all purchases inside one transaction.
func (r *GORMPurchaseRepository) CreateBatch(ctx context.Context, purchases []models.Purchase) error {
	if len(purchases) == 0 {
		return nil
	}
	for i := range purchases {
		if purchases[i].ID == "" {
			purchases[i].ID = uuid.New().String()
		}
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&purchases).Error // Rolled back on error
	})
	if err != nil {
		return fmt.Errorf("failed to record purchases: %w", gormErr(err))
	}
	return nil
}

// GetByUser returns the user's purchases, most recent first.
func (r *GORMPurchaseRepository) GetByUser(ctx context.Context, userID string) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("purchased_at DESC, id").
		Find(&purchases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get purchases of user %s: %w", userID, err)
	}
	return purchases, nil
}
