package models

import "time"

// Purchase is an immutable ledger entry written at checkout.
// Price and Quantity are copied from the cart snapshot, never referenced.
type Purchase struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CheckoutID  string    `json:"checkout_id" gorm:"index;type:varchar(36)"`
	UserID      string    `json:"user_id" gorm:"index;type:varchar(36)"`
	ProductID   string    `json:"product_id" gorm:"type:varchar(36)"`
	ProductName string    `json:"product_name" gorm:"type:varchar(100)"`
	ImageURL    string    `json:"image_url,omitempty"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	PurchasedAt time.Time `json:"purchased_at" gorm:"index"`

	// Product is the current listing, if it still exists. Resolved on read.
	Product *Product `json:"product,omitempty" gorm:"-"`
}

// Total is the frozen line total.
func (p Purchase) Total() float64 {
	return p.Price * float64(p.Quantity)
}

// PurchaseGroup is every ledger line written by one checkout.
type PurchaseGroup struct {
	CheckoutID  string     `json:"checkout_id"`
	PurchasedAt time.Time  `json:"purchased_at"`
	Items       []Purchase `json:"items"`
	Total       float64    `json:"total"`
}

// GroupPurchases groups ledger lines by checkout, keeping the input order
// of first appearance. Lines without a checkout id form their own group.
func GroupPurchases(purchases []Purchase) []PurchaseGroup {
	groups := make([]PurchaseGroup, 0)
	index := make(map[string]int)
	for _, p := range purchases {
		key := p.CheckoutID
		if key == "" {
			key = "line:" + p.ID
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, PurchaseGroup{CheckoutID: p.CheckoutID, PurchasedAt: p.PurchasedAt})
		}
		groups[i].Items = append(groups[i].Items, p)
		groups[i].Total += p.Total()
	}
	return groups
}
