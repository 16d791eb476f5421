package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/grocery-shop/internal/service"
)

// ListOrdersHandler обрабатывает запрос GET /api/orders
func ListOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFromRequest(w, r, logger)
		if !ok {
			return
		}

		orders, err := orderService.ListOrders(r.Context(), userID)
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, http.StatusOK, orders)
	}
}

// GetOrderHandler обрабатывает запрос GET /api/orders/{id}; чужой заказ неотличим от несуществующего
func GetOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFromRequest(w, r, logger)
		if !ok {
			return
		}

		orderID, ok := idParam(r, "id")
		if !ok {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		order, err := orderService.GetOrder(r.Context(), userID, orderID)
		if err != nil {
			if errors.Is(err, service.ErrOrderNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get order", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, http.StatusOK, order)
	}
}
