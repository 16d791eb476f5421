package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyCart - в корзине нет позиций, транзакция не открывается
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInsufficientStock - для errors.Is; подробности в *InsufficientStockError
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrTransientConflict - конфликт блокировок или сериализации, заказ можно повторить без изменений
	ErrTransientConflict = errors.New("transient conflict, retry checkout")
)

// StockShortfall описывает одну позицию, которую невозможно зарезервировать.
// Missing выставляется, когда товар удалён из каталога; Available в этом случае 0.
type StockShortfall struct {
	ProductID int64  `json:"product_id"`
	Product   string `json:"product,omitempty"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
	Missing   bool   `json:"missing,omitempty"`
}

// InsufficientStockError отказ в оформлении заказа по всем проблемным позициям сразу.
type InsufficientStockError struct {
	Items []StockShortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		name := it.Product
		if name == "" {
			name = fmt.Sprintf("product %d", it.ProductID)
		}
		if it.Missing {
			parts = append(parts, fmt.Sprintf("%s is no longer available", name))
			continue
		}
		parts = append(parts, fmt.Sprintf("insufficient stock for %s (available %d, requested %d)", name, it.Available, it.Requested))
	}
	return strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
