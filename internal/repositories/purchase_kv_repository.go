package repositories

import (
	"context"
	"fmt"

	"ecofinds/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KVPurchaseRepository stores the purchase ledger in a Redis hash.
type KVPurchaseRepository struct {
	purchases kvCollection[models.Purchase]
}

// NewKVPurchaseRepository creates a Redis-backed PurchaseRepository.
func NewKVPurchaseRepository(rdb *redis.Client, prefix string) *KVPurchaseRepository {
	return &KVPurchaseRepository{purchases: newKVCollection[models.Purchase](rdb, prefix, "purchases")}
}

// CreateBatch writes every purchase with one HSET.
func (r *KVPurchaseRepository) CreateBatch(ctx context.Context, purchases []models.Purchase) error {
	ids := make([]string, len(purchases))
	values := make([]models.Purchase, len(purchases))
	for i := range purchases {
		if purchases[i].ID == "" {
			purchases[i].ID = uuid.New().String()
		}
		ids[i] = purchases[i].ID
		values[i] = purchases[i]
		values[i].Product = nil
	}
	if err := r.purchases.putMany(ctx, ids, values); err != nil {
		return fmt.Errorf("failed to record purchases: %w", err)
	}
	return nil
}

// GetByUser returns the user's purchases, most recent first.
func (r *KVPurchaseRepository) GetByUser(ctx context.Context, userID string) ([]models.Purchase, error) {
	list, err := r.purchases.filter(ctx, func(p models.Purchase) bool { return p.UserID == userID })
	if err != nil {
		return nil, fmt.Errorf("failed to get purchases of user %s: %w", userID, err)
	}
	sortPurchasesNewestFirst(list)
	return list, nil
}
