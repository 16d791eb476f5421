package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/grocery-shop/internal/service"
)

// InsufficientStockResponse ответ 409 со всеми позициями, которых не хватает на складе
type InsufficientStockResponse struct {
	Error  string                   `json:"error"`
	Reason string                   `json:"reason"`
	Items  []service.StockShortfall `json:"items"`
}

const (
	ReasonEmptyCart         = "empty_cart"
	ReasonInsufficientStock = "insufficient_stock"
	ReasonTransientConflict = "transient_conflict"
	retryAfterSeconds       = "1"
)

// CheckoutHandler обрабатывает запрос POST /api/checkout
func CheckoutHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFromRequest(w, r, logger)
		if !ok {
			return
		}

		order, err := checkoutService.Checkout(r.Context(), userID)
		if err != nil {
			writeCheckoutError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusCreated, order)
	}
}

func writeCheckoutError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var stockErr *service.InsufficientStockError

	switch {
	case errors.Is(err, service.ErrEmptyCart):
		logger.Info("checkout rejected", slog.String("reason", ReasonEmptyCart))
		writeJSON(w, logger, http.StatusBadRequest, ErrorResponse{
			Error:  "cart is empty",
			Reason: ReasonEmptyCart,
		})
	case errors.As(err, &stockErr):
		logger.Info("checkout rejected", slog.String("reason", ReasonInsufficientStock), slog.Any("error", err))
		writeJSON(w, logger, http.StatusConflict, InsufficientStockResponse{
			Error:  "insufficient stock",
			Reason: ReasonInsufficientStock,
			Items:  stockErr.Items,
		})
	case errors.Is(err, service.ErrTransientConflict):
		logger.Warn("checkout failed with transient conflict", slog.Any("error", err))
		w.Header().Set("Retry-After", retryAfterSeconds)
		writeJSON(w, logger, http.StatusServiceUnavailable, ErrorResponse{
			Error:     "checkout conflicted with concurrent orders, retry",
			Reason:    ReasonTransientConflict,
			Retryable: true,
		})
	default:
		logger.Error("failed to checkout", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
