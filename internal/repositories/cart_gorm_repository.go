package repositories

import (
	"context"
	"fmt"

	"ecofinds/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

// GetByUser returns the user's cart lines in the order they were added.
func (r *GORMCartRepository) GetByUser(ctx context.Context, userID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at, id").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get cart of user %s: %w", userID, err)
	}
	return items, nil
}

// GetByID returns a cart line by ID.
func (r *GORMCartRepository) GetByID(ctx context.Context, id string) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("cart item with ID %s: %w", id, gormErr(err))
	}
	return &item, nil
}

// Create inserts a cart line; the (user_id, product_id) unique index rejects duplicates.
func (r *GORMCartRepository) Create(ctx context.Context, item *models.CartItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create cart item: %w", gormErr(err))
	}
	return nil
}

// UpdateQuantity sets the quantity of a cart line.
func (r *GORMCartRepository) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	res := r.db.WithContext(ctx).Model(&models.CartItem{}).Where("id = ?", id).Update("quantity", quantity)
	if res.Error != nil {
		return fmt.Errorf("failed to update cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart item with ID %s not found for update: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a cart line.
func (r *GORMCartRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.CartItem{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cart item with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteByIDs removes the given cart lines in one statement.
func (r *GORMCartRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Delete(&models.CartItem{}, "id IN ?", ids).Error; err != nil {
		return fmt.Errorf("failed to delete cart items: %w", err)
	}
	return nil
}

// DeleteByProduct removes every cart line that references productID.
func (r *GORMCartRepository) DeleteByProduct(ctx context.Context, productID string) (int, error) {
	res := r.db.WithContext(ctx).Delete(&models.CartItem{}, "product_id = ?", productID)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete cart items of product %s: %w", productID, res.Error)
	}
	return int(res.RowsAffected), nil
}
