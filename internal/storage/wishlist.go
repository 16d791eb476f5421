package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/linemk/grocery-shop/internal/domain/models"
)

// WishlistStorage описывает методы для работы с избранным.
type WishlistStorage interface {
	// ToggleItem добавляет товар в избранное или убирает его, если он там уже есть.
	// added=false означает удаление, item при этом nil.
	ToggleItem(ctx context.Context, userID, productID int64) (item *models.WishlistItem, added bool, err error)
	ListItems(ctx context.Context, userID int64) ([]*models.WishlistItem, error)
}

type wishlistRepository struct {
	db *sql.DB
}

// NewWishlistRepository создаёт новый репозиторий избранного.
func NewWishlistRepository(db *sql.DB) WishlistStorage {
	return &wishlistRepository{db: db}
}

func (r *wishlistRepository) ToggleItem(ctx context.Context, userID, productID int64) (*models.WishlistItem, bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2", userID, productID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n > 0 {
		return nil, false, nil
	}

	// при гонке двух добавлений ON CONFLICT возвращает уже существующую строку
	item := &models.WishlistItem{UserID: userID, ProductID: productID}
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO wishlist_items (user_id, product_id, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, product_id) DO UPDATE SET product_id = EXCLUDED.product_id
		 RETURNING id, created_at`,
		userID, productID, time.Now().UTC(),
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, false, ErrProductNotFound
		}
		return nil, false, fmt.Errorf("failed to add wishlist item: %w", err)
	}
	return item, true, nil
}

func (r *wishlistRepository) ListItems(ctx context.Context, userID int64) ([]*models.WishlistItem, error) {
	query := `
		SELECT w.id, w.product_id, w.created_at, p.id, p.name, p.price, p.stock, p.total_sold, p.created_at, p.category_id
		FROM wishlist_items w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC, w.id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wishlist: %w", err)
	}
	defer rows.Close()

	items := make([]*models.WishlistItem, 0)
	for rows.Next() {
		var (
			item       = &models.WishlistItem{UserID: userID, Product: &models.Product{}}
			p          = item.Product
			categoryID sql.NullInt64
		)
		if err := rows.Scan(&item.ID, &item.ProductID, &item.CreatedAt,
			&p.ID, &p.Name, &p.Price, &p.Stock, &p.TotalSold, &p.CreatedAt, &categoryID); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		if categoryID.Valid {
			p.CategoryID = &categoryID.Int64
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
