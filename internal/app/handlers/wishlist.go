package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/linemk/grocery-shop/internal/service"
)

type ToggleWishlistRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

type WishlistItemResponse struct {
	ID        int64            `json:"id"`
	ProductID int64            `json:"product_id"`
	Product   *ProductResponse `json:"product,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// ToggleWishlistHandler обрабатывает запрос POST /api/wishlist/toggle.
// 201 - товар добавлен, 200 - убран из избранного.
func ToggleWishlistHandler(log *slog.Logger, wishlistService service.WishlistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ToggleWishlistHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFromRequest(w, r, logger)
		if !ok {
			return
		}

		var req ToggleWishlistRequest
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

		item, added, err := wishlistService.Toggle(r.Context(), userID, req.ProductID)
		if err != nil {
			if errors.Is(err, service.ErrProductNotFound) {
				http.Error(w, "product not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to toggle wishlist", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		if !added {
			writeJSON(w, logger, http.StatusOK, map[string]string{"message": "removed from wishlist"})
			return
		}
		writeJSON(w, logger, http.StatusCreated, WishlistItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			CreatedAt: item.CreatedAt,
		})
	}
}

// GetWishlistHandler обрабатывает запрос GET /api/wishlist
func GetWishlistHandler(log *slog.Logger, wishlistService service.WishlistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetWishlistHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := userIDFromRequest(w, r, logger)
		if !ok {
			return
		}

		items, err := wishlistService.List(r.Context(), userID)
		if err != nil {
			logger.Error("failed to list wishlist", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]WishlistItemResponse, 0, len(items))
		for _, item := range items {
			entry := WishlistItemResponse{ID: item.ID, ProductID: item.ProductID, CreatedAt: item.CreatedAt}
			if item.Product != nil {
				p := toProductResponse(item.Product)
				entry.Product = &p
			}
			resp = append(resp, entry)
		}
		writeJSON(w, logger, http.StatusOK, resp)
	}
}
