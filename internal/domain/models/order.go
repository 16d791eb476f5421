package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order представляет оформленный заказ. После создания не изменяется.
type Order struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	Lines       []OrderLine     `json:"items"`
}

// OrderLine позиция заказа. PriceAtPurchase - зафиксированная цена на момент покупки,
// ProductID равен nil, если товар позже удалили из каталога.
type OrderLine struct {
	ID              int64           `json:"-"`
	OrderID         int64           `json:"-"`
	ProductID       *int64          `json:"product_id"`
	ProductName     string          `json:"product,omitempty"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// Amount возвращает quantity * price_at_purchase.
func (l *OrderLine) Amount() decimal.Decimal {
	return l.PriceAtPurchase.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
