package models

import "time"

// OrderView внешнее представление заказа, денежные суммы - строки с двумя знаками
type OrderView struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user"`
	TotalAmount string          `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	Items       []OrderItemView `json:"items"`
}

type OrderItemView struct {
	ProductID       *int64 `json:"product_id"`
	Product         string `json:"product,omitempty"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase string `json:"price_at_purchase"`
}
