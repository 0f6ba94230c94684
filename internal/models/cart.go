package models

import "time"

// CartItem is one cart line. A user holds at most one line per product.
type CartItem struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"uniqueIndex:idx_cart_user_product;type:varchar(36)"`
	ProductID string    `json:"product_id" gorm:"uniqueIndex:idx_cart_user_product;index;type:varchar(36)"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`

	Product *Product `json:"product,omitempty" gorm:"-"`
}

// Subtotal is the line price at the product's current price.
func (c CartItem) Subtotal() float64 {
	if c.Product == nil {
		return 0
	}
	return c.Product.Price * float64(c.Quantity)
}
