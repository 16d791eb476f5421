package models

import "time"

// WishlistItem товар в избранном пользователя
type WishlistItem struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	ProductID int64     `json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
