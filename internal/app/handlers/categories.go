package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/grocery-shop/internal/domain/models"
	"github.com/linemk/grocery-shop/internal/service"
)

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=120"`
	Slug string `json:"slug" validate:"required,max=50"`
}

type UpdateCategoryRequest struct {
	Name *string `json:"name" validate:"omitempty,max=120"`
	Slug *string `json:"slug" validate:"omitempty,max=50"`
}

// ListCategoriesHandler обрабатывает запрос GET /api/categories
func ListCategoriesHandler(log *slog.Logger, categoryService service.CategoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListCategoriesHandler"
		logger := log.With(slog.String("op", op))

		categories, err := categoryService.ListCategories(r.Context())
		if err != nil {
			logger.Error("failed to list categories", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, http.StatusOK, categories)
	}
}

// GetCategoryHandler обрабатывает запрос GET /api/categories/{id}
func GetCategoryHandler(log *slog.Logger, categoryService service.CategoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCategoryHandler"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(r, "id")
		if !ok {
			http.Error(w, "invalid category id", http.StatusBadRequest)
			return
		}

		category, err := categoryService.GetCategory(r.Context(), id)
		if err != nil {
			if errors.Is(err, service.ErrCategoryNotFound) {
				http.Error(w, "category not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get category", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, http.StatusOK, category)
	}
}

// CreateCategoryHandler обрабатывает запрос POST /api/categories (только менеджер)
func CreateCategoryHandler(log *slog.Logger, categoryService service.CategoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateCategoryHandler"
		logger := log.With(slog.String("op", op))

		var req CreateCategoryRequest
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

		category, err := categoryService.CreateCategory(r.Context(), req.Name, req.Slug)
		if err != nil {
			if !writeCategoryError(w, err) {
				logger.Error("failed to create category", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, logger, http.StatusCreated, category)
	}
}

// UpdateCategoryHandler обрабатывает запрос PATCH /api/categories/{id} (только менеджер)
func UpdateCategoryHandler(log *slog.Logger, categoryService service.CategoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateCategoryHandler"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(r, "id")
		if !ok {
			http.Error(w, "invalid category id", http.StatusBadRequest)
			return
		}

		var req UpdateCategoryRequest
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

		category, err := categoryService.UpdateCategory(r.Context(), id, models.CategoryPatch{Name: req.Name, Slug: req.Slug})
		if err != nil {
			if !writeCategoryError(w, err) {
				logger.Error("failed to update category", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, logger, http.StatusOK, category)
	}
}

// DeleteCategoryHandler обрабатывает запрос DELETE /api/categories/{id} (только менеджер)
func DeleteCategoryHandler(log *slog.Logger, categoryService service.CategoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteCategoryHandler"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(r, "id")
		if !ok {
			http.Error(w, "invalid category id", http.StatusBadRequest)
			return
		}

		if err := categoryService.DeleteCategory(r.Context(), id); err != nil {
			if !writeCategoryError(w, err) {
				logger.Error("failed to delete category", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func writeCategoryError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, service.ErrCategoryNotFound):
		http.Error(w, "category not found", http.StatusNotFound)
	case errors.Is(err, service.ErrCategoryExists):
		http.Error(w, "category with this slug already exists", http.StatusConflict)
	case errors.Is(err, service.ErrInvalidCategory):
		http.Error(w, "invalid category", http.StatusBadRequest)
	case errors.Is(err, service.ErrNothingToUpdate):
		http.Error(w, "nothing to update", http.StatusBadRequest)
	default:
		return false
	}
	return true
}
