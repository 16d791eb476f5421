package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/grocery-shop/internal/domain/models"
	"github.com/linemk/grocery-shop/internal/service"
	"github.com/linemk/grocery-shop/internal/storage"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	Price      string `json:"price" validate:"required,numeric"`
	Stock      int    `json:"stock" validate:"gte=0"`
	CategoryID *int64 `json:"category_id" validate:"omitempty,gt=0"`
}

// UpdateProductRequest отсутствующее поле не меняется
type UpdateProductRequest struct {
	Name       *string `json:"name" validate:"omitempty,max=100"`
	Price      *string `json:"price" validate:"omitempty,numeric"`
	Stock      *int    `json:"stock" validate:"omitempty,gte=0"`
	CategoryID *int64  `json:"category_id" validate:"omitempty,gt=0"`
}

type RestockRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// ListProductsHandler обрабатывает запрос GET /api/products?popular=most|least&category=<slug>
func ListProductsHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListProductsHandler"
		logger := log.With(slog.String("op", op))

		popular := r.URL.Query().Get("popular")
		if popular != "" && popular != storage.PopularMost && popular != storage.PopularLeast {
			http.Error(w, "popular must be 'most' or 'least'", http.StatusBadRequest)
			return
		}

		filter := models.ProductFilter{Popular: popular, Category: r.URL.Query().Get("category")}
		products, err := catalogService.ListProducts(r.Context(), filter)
		if err != nil {
			logger.Error("failed to list products", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]ProductResponse, 0, len(products))
		for _, p := range products {
			resp = append(resp, toProductResponse(p))
		}
		writeJSON(w, logger, http.StatusOK, resp)
	}
}

// GetProductHandler обрабатывает запрос GET /api/products/{id}
func GetProductHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetProductHandler"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(r, "id")
		if !ok {
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		product, err := catalogService.GetProduct(r.Context(), id)
		if err != nil {
			if errors.Is(err, service.ErrProductNotFound) {
				http.Error(w, "product not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get product", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, http.StatusOK, toProductResponse(product))
	}
}

// CreateProductHandler обрабатывает запрос POST /api/products (только менеджер)
func CreateProductHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateProductHandler"
		logger := log.With(slog.String("op", op))

		var req CreateProductRequest
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
		price, err := decimal.NewFromString(req.Price)
		if err != nil {
			http.Error(w, "invalid price", http.StatusBadRequest)
			return
		}

		product, err := catalogService.CreateProduct(r.Context(), req.Name, price, req.Stock, req.CategoryID)
		if err != nil {
			if !writeProductWriteError(w, err) {
				logger.Error("failed to create product", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, logger, http.StatusCreated, toProductResponse(product))
	}
}

// UpdateProductHandler обрабатывает запрос PATCH /api/products/{id} (только менеджер)
func UpdateProductHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateProductHandler"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(r, "id")
		if !ok {
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		var req UpdateProductRequest
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

		patch := models.ProductPatch{Name: req.Name, Stock: req.Stock, CategoryID: req.CategoryID}
		if req.Price != nil {
			price, err := decimal.NewFromString(*req.Price)
			if err != nil {
				http.Error(w, "invalid price", http.StatusBadRequest)
				return
			}
			patch.Price = &price
		}

		product, err := catalogService.UpdateProduct(r.Context(), id, patch)
		if err != nil {
			if !writeProductWriteError(w, err) {
				logger.Error("failed to update product", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, logger, http.StatusOK, toProductResponse(product))
	}
}

// DeleteProductHandler обрабатывает запрос DELETE /api/products/{id} (только менеджер).
// Оформленные заказы сохраняют позиции с зафиксированной ценой.
func DeleteProductHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteProductHandler"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(r, "id")
		if !ok {
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		if err := catalogService.DeleteProduct(r.Context(), id); err != nil {
			if errors.Is(err, service.ErrProductNotFound) {
				http.Error(w, "product not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to delete product", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// writeProductWriteError отвечает на ошибки создания и изменения товара; false - ошибка не распознана.
func writeProductWriteError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		http.Error(w, "product not found", http.StatusNotFound)
	case errors.Is(err, service.ErrProductExists):
		http.Error(w, "product already exists", http.StatusConflict)
	case errors.Is(err, service.ErrCategoryNotFound):
		http.Error(w, "category not found", http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidProduct):
		http.Error(w, "invalid product", http.StatusBadRequest)
	case errors.Is(err, service.ErrNothingToUpdate):
		http.Error(w, "nothing to update", http.StatusBadRequest)
	default:
		return false
	}
	return true
}

// RestockHandler обрабатывает запрос POST /api/products/{id}/restock (только менеджер)
func RestockHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RestockHandler"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(r, "id")
		if !ok {
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		var req RestockRequest
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

		product, err := catalogService.Restock(r.Context(), id, req.Quantity)
		if err != nil {
			if errors.Is(err, service.ErrProductNotFound) {
				http.Error(w, "product not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to restock product", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, http.StatusOK, toProductResponse(product))
	}
}
