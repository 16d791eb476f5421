package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/grocery-shop/internal/service"
)

type AddToCartRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// RemoveFromCartRequest quantity = 0 удаляет позицию целиком
type RemoveFromCartRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"gte=0"`
}

type CartLineResponse struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// GetCartHandler обрабатывает запрос GET /api/cart
func GetCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFromRequest(w, r, logger)
		if !ok {
			return
		}

		cart, err := cartService.GetCart(r.Context(), userID)
		if err != nil {
			logger.Error("failed to get cart", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, http.StatusOK, cart)
	}
}

// AddToCartHandler обрабатывает запрос POST /api/cart/add
func AddToCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddToCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFromRequest(w, r, logger)
		if !ok {
			return
		}

		var req AddToCartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		line, err := cartService.AddToCart(r.Context(), userID, req.ProductID, req.Quantity)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrProductNotFound):
				http.Error(w, "product not found", http.StatusNotFound)
			case errors.Is(err, service.ErrInvalidQuantity):
				http.Error(w, "quantity must be positive", http.StatusBadRequest)
			default:
				logger.Error("failed to add item to cart", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, logger, http.StatusOK, CartLineResponse{ProductID: line.ProductID, Quantity: line.Quantity})
	}
}

// RemoveFromCartHandler обрабатывает запрос POST /api/cart/remove
func RemoveFromCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveFromCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFromRequest(w, r, logger)
		if !ok {
			return
		}

		var req RemoveFromCartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		line, err := cartService.RemoveFromCart(r.Context(), userID, req.ProductID, req.Quantity)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrCartLineNotFound):
				http.Error(w, "item not found in cart", http.StatusNotFound)
			case errors.Is(err, service.ErrInvalidQuantity):
				http.Error(w, "quantity must not be negative", http.StatusBadRequest)
			default:
				logger.Error("failed to remove item from cart", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		// позиция удалена целиком
		resp := CartLineResponse{ProductID: req.ProductID}
		if line != nil {
			resp.Quantity = line.Quantity
		}
		writeJSON(w, logger, http.StatusOK, resp)
	}
}
