package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product представляет товар магазина вместе со складскими счётчиками
type Product struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`  // уникальное, хранится в нижнем регистре
	Price      decimal.Decimal `json:"price"` // цена за единицу, 2 знака после запятой
	Stock      int             `json:"stock"`
	TotalSold  int             `json:"total_sold"`
	CategoryID *int64          `json:"category_id"`
	CreatedAt  time.Time       `json:"created_at"`
}

// CanReserve сообщает, хватает ли остатка на складе для списания quantity единиц.
func (p *Product) CanReserve(quantity int) bool {
	return quantity > 0 && p.Stock >= quantity
}

// ProductPatch частичное изменение товара; nil - поле не меняется.
type ProductPatch struct {
	Name       *string
	Price      *decimal.Decimal
	Stock      *int
	CategoryID *int64
}

func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Price == nil && p.Stock == nil && p.CategoryID == nil
}

// ProductFilter параметры выборки каталога
type ProductFilter struct {
	Popular  string // most | least
	Category string // slug категории
}

// SalesReportRow строка отчёта о продажах
type SalesReportRow struct {
	ProductID int64   `json:"product_id"`
	Product   string  `json:"product"`
	Sold      int     `json:"sold"`
	Stock     int     `json:"stock"`
	Category  *string `json:"category"`
}
