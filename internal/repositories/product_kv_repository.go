package repositories

import (
	"context"
	"fmt"
	"time"

	"ecofinds/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KVProductRepository stores products in a Redis hash.
type KVProductRepository struct {
	products kvCollection[models.Product]
}

// NewKVProductRepository creates a Redis-backed ProductRepository.
func NewKVProductRepository(rdb *redis.Client, prefix string) *KVProductRepository {
	return &KVProductRepository{products: newKVCollection[models.Product](rdb, prefix, "products")}
}

// GetAll returns all products, newest first.
func (r *KVProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	products, err := r.products.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	sortProductsNewestFirst(products)
	return products, nil
}

// GetBySeller returns the products listed by sellerID, newest first.
func (r *KVProductRepository) GetBySeller(ctx context.Context, sellerID string) ([]models.Product, error) {
	products, err := r.products.filter(ctx, func(p models.Product) bool { return p.SellerID == sellerID })
	if err != nil {
		return nil, fmt.Errorf("failed to get products of seller %s: %w", sellerID, err)
	}
	sortProductsNewestFirst(products)
	return products, nil
}

// GetByID returns a product by its ID.
func (r *KVProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	p, err := r.products.get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("product with ID %s: %w", id, err)
	}
	return p, nil
}

// Create stores a new product.
func (r *KVProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := time.Now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	if err := r.products.putNew(ctx, product.ID, storedProduct(*product)); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update replaces an existing product, keeping its creation time.
func (r *KVProductRepository) Update(ctx context.Context, product *models.Product) error {
	existing, err := r.products.get(ctx, product.ID)
	if err != nil {
		return fmt.Errorf("product with ID %s not found for update: %w", product.ID, err)
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now()
	return r.products.put(ctx, product.ID, storedProduct(*product))
}

// Delete removes a product by its ID.
func (r *KVProductRepository) Delete(ctx context.Context, id string) error {
	n, err := r.products.del(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("product with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	return nil
}
