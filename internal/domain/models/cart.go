package models

import "github.com/shopspring/decimal"

// CartLine представляет позицию корзины пользователя.
// Product заполняется при чтении с JOIN и равен nil, если товар уже удалён.
type CartLine struct {
	UserID    int64    `json:"-"`
	ProductID int64    `json:"product_id"`
	Quantity  int      `json:"quantity"`
	Product   *Product `json:"product,omitempty"`
}

// Subtotal возвращает стоимость позиции по текущей цене товара.
func (l *CartLine) Subtotal() decimal.Decimal {
	if l.Product == nil {
		return decimal.Zero
	}
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
