package service

import "github.com/linemk/grocery-shop/internal/domain/models"

// MaterializeOrder формирует внешнее представление заказа. Ничего не пишет:
// к моменту вызова заказ уже зафиксирован.
func MaterializeOrder(order *models.Order) *models.OrderView {
	view := &models.OrderView{
		ID:          order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount.StringFixed(2),
		CreatedAt:   order.CreatedAt,
		Items:       make([]models.OrderItemView, 0, len(order.Lines)),
	}
	for _, line := range order.Lines {
		view.Items = append(view.Items, models.OrderItemView{
			ProductID:       line.ProductID,
			Product:         line.ProductName,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.PriceAtPurchase.StringFixed(2),
		})
	}
	return view
}
