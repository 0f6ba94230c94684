package models

import "time"

// Categories a listing can be filed under.
const (
	CategoryElectronics = "Electronics"
	CategoryFurniture   = "Furniture"
	CategoryClothing    = "Clothing"
	CategoryBooks       = "Books"
	CategoryHomeGoods   = "Home Goods"
	CategoryOther       = "Other"

	// CategoryAll is only meaningful as a filter and never stored on a product.
	CategoryAll = "All"
)

// Categories lists the storable categories in display order.
var Categories = []string{
	CategoryElectronics,
	CategoryFurniture,
	CategoryClothing,
	CategoryBooks,
	CategoryHomeGoods,
	CategoryOther,
}

// IsCategory reports whether c is one of the storable categories.
func IsCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product represents a second-hand listing in the store.
type Product struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SellerID    string    `json:"seller_id" gorm:"index;type:varchar(36)"`
	Name        string    `json:"name" gorm:"type:varchar(100)"`
	Description string    `json:"description" gorm:"type:text"`
	Price       float64   `json:"price"`
	Category    string    `json:"category" gorm:"index;type:varchar(50)"`
	Images      []string  `json:"images" gorm:"serializer:json;type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Seller is resolved on read and never persisted.
	Seller *User `json:"seller,omitempty" gorm:"-"`
}

// Thumbnail returns the first image reference, or "" when there is none.
func (p Product) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
