package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/linemk/grocery-shop/internal/domain/models"
	"github.com/linemk/grocery-shop/internal/storage"
)

var (
	ErrInvalidCategory = errors.New("invalid category")
	ErrCategoryExists  = errors.New("category with this slug already exists")
)

// slug: латиница в нижнем регистре и цифры, слова через одиночный дефис
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// CategoryService справочник категорий товаров.
type CategoryService interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	CreateCategory(ctx context.Context, name, slug string) (*models.Category, error)
	UpdateCategory(ctx context.Context, id int64, patch models.CategoryPatch) (*models.Category, error)
	// DeleteCategory товары категории остаются в каталоге без категории.
	DeleteCategory(ctx context.Context, id int64) error
}

type categoryService struct {
	log          *slog.Logger
	categoryRepo storage.CategoryStorage
}

func NewCategoryService(log *slog.Logger, categoryRepo storage.CategoryStorage) CategoryService {
	return &categoryService{
		log:          log,
		categoryRepo: categoryRepo,
	}
}

func (s *categoryService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	const op = "service.CategoryService.ListCategories"

	categories, err := s.categoryRepo.ListCategories(ctx)
	if err != nil {
		s.log.Error("failed to list categories", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return categories, nil
}

func (s *categoryService) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	const op = "service.CategoryService.GetCategory"

	category, err := s.categoryRepo.GetCategoryByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrCategoryNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrCategoryNotFound)
		}
		s.log.Error("failed to get category", slog.String("op", op), slog.Int64("categoryID", id), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return category, nil
}

func (s *categoryService) CreateCategory(ctx context.Context, name, slug string) (*models.Category, error) {
	const op = "service.CategoryService.CreateCategory"
	logger := s.log.With(slog.String("op", op))

	name = strings.TrimSpace(name)
	slug = strings.ToLower(strings.TrimSpace(slug))
	if name == "" || !slugPattern.MatchString(slug) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCategory)
	}

	category, err := s.categoryRepo.CreateCategory(ctx, name, slug)
	if err != nil {
		if errors.Is(err, storage.ErrCategoryExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrCategoryExists)
		}
		logger.Error("failed to create category", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("category created", slog.Int64("categoryID", category.ID), slog.String("slug", category.Slug))
	return category, nil
}

func (s *categoryService) UpdateCategory(ctx context.Context, id int64, patch models.CategoryPatch) (*models.Category, error) {
	const op = "service.CategoryService.UpdateCategory"
	logger := s.log.With(slog.String("op", op), slog.Int64("categoryID", id))

	if patch.Name == nil && patch.Slug == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNothingToUpdate)
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCategory)
		}
		patch.Name = &name
	}
	if patch.Slug != nil {
		slug := strings.ToLower(strings.TrimSpace(*patch.Slug))
		if !slugPattern.MatchString(slug) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCategory)
		}
		patch.Slug = &slug
	}

	category, err := s.categoryRepo.UpdateCategory(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrCategoryNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrCategoryNotFound)
		case errors.Is(err, storage.ErrCategoryExists):
			return nil, fmt.Errorf("%s: %w", op, ErrCategoryExists)
		}
		logger.Error("failed to update category", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("category updated")
	return category, nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, id int64) error {
	const op = "service.CategoryService.DeleteCategory"
	logger := s.log.With(slog.String("op", op), slog.Int64("categoryID", id))

	if err := s.categoryRepo.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, storage.ErrCategoryNotFound) {
			return fmt.Errorf("%s: %w", op, ErrCategoryNotFound)
		}
		logger.Error("failed to delete category", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("category deleted")
	return nil
}
