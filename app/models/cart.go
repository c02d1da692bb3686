package models

import "time"

// CartItem is one (user, product) line of a cart. The unique index makes the
// add-or-merge an atomic upsert.
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"userId"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"productId"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}
