package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/grocery-shop/internal/domain/models"
)

// CategoryStorage описывает методы для работы с категориями товаров.
type CategoryStorage interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*models.Category, error)
	CreateCategory(ctx context.Context, name, slug string) (*models.Category, error)
	UpdateCategory(ctx context.Context, id int64, patch models.CategoryPatch) (*models.Category, error)
	// DeleteCategory удаляет категорию; у её товаров category_id становится NULL.
	DeleteCategory(ctx context.Context, id int64) error
}

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository создаёт новый репозиторий категорий.
func NewCategoryRepository(db *sql.DB) CategoryStorage {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, slug FROM categories ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]*models.Category, 0)
	for rows.Next() {
		c := &models.Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	c := &models.Category{}
	err := r.db.QueryRowContext(ctx, "SELECT id, name, slug FROM categories WHERE id = $1", id).
		Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *categoryRepository) CreateCategory(ctx context.Context, name, slug string) (*models.Category, error) {
	c := &models.Category{}
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO categories (name, slug) VALUES ($1, $2) RETURNING id, name, slug",
		name, slug,
	).Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return c, nil
}

func (r *categoryRepository) UpdateCategory(ctx context.Context, id int64, patch models.CategoryPatch) (*models.Category, error) {
	c := &models.Category{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE categories SET name = COALESCE($1, name), slug = COALESCE($2, slug)
		 WHERE id = $3 RETURNING id, name, slug`,
		patch.Name, patch.Slug, id,
	).Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrCategoryNotFound
		case isUniqueViolation(err):
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return c, nil
}

func (r *categoryRepository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
