package repositories

import (
	"sort"

	"ecofinds/internal/models"
)

// Result ordering shared by the backends that filter in process.

func sortProductsNewestFirst(products []models.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		if products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].ID < products[j].ID
		}
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
}

func sortCartOldestFirst(items []models.CartItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

func sortPurchasesNewestFirst(purchases []models.Purchase) {
	sort.SliceStable(purchases, func(i, j int) bool {
		if purchases[i].PurchasedAt.Equal(purchases[j].PurchasedAt) {
			return purchases[i].ID < purchases[j].ID
		}
		return purchases[i].PurchasedAt.After(purchases[j].PurchasedAt)
	})
}
