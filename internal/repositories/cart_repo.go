package repositories

import (
	"context"

	"ecofinds/internal/models"
)

// CartRepository defines the interface for cart line data access.
type CartRepository interface {
	GetByUser(ctx context.Context, userID string) ([]models.CartItem, error)
	GetByID(ctx context.Context, id string) (*models.CartItem, error)
	// Create fails with ErrConstraintViolation if the user already has a line for the product.
	Create(ctx context.Context, item *models.CartItem) error
	UpdateQuantity(ctx context.Context, id string, quantity int) error
	Delete(ctx context.Context, id string) error
	// DeleteByIDs removes the given lines; ids that no longer exist are skipped.
	DeleteByIDs(ctx context.Context, ids []string) error
	// DeleteByProduct removes every line referencing the product and returns how many were removed.
	DeleteByProduct(ctx context.Context, productID string) (int, error)
}
