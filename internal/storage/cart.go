package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/linemk/grocery-shop/internal/domain/models"
	"github.com/shopspring/decimal"
)

// CartStorage описывает методы для работы с корзиной пользователя.
type CartStorage interface {
	// GetCartSnapshot читает корзину вместе с текущим состоянием товаров, без блокировок.
	// Пустая корзина - пустой срез, не ошибка.
	GetCartSnapshot(ctx context.Context, userID int64) ([]*models.CartLine, error)
	// LockCartTx перечитывает строки корзины внутри транзакции с блокировкой, по возрастанию product_id.
	LockCartTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartLine, error)
	// ClearCartTx удаляет все строки корзины пользователя.
	ClearCartTx(ctx context.Context, tx *sql.Tx, userID int64) (int64, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) (*models.CartLine, error)
	// RemoveItem уменьшает количество на quantity; quantity <= 0 или quantity >= текущего удаляет строку.
	// Возвращает nil, если строка удалена.
	RemoveItem(ctx context.Context, userID, productID int64, quantity int) (*models.CartLine, error)
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт новый репозиторий корзины.
func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetCartSnapshot(ctx context.Context, userID int64) ([]*models.CartLine, error) {
	query := `
		SELECT c.product_id, c.quantity, p.id, p.name, p.price, p.stock, p.total_sold, p.created_at
		FROM cart_items c
		LEFT JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1 AND c.quantity > 0
		ORDER BY c.product_id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	lines := make([]*models.CartLine, 0)
	for rows.Next() {
		var (
			line      = &models.CartLine{UserID: userID}
			id        sql.NullInt64
			name      sql.NullString
			price     decimal.NullDecimal
			stock     sql.NullInt64
			totalSold sql.NullInt64
			createdAt sql.NullTime
		)
		if err := rows.Scan(&line.ProductID, &line.Quantity, &id, &name, &price, &stock, &totalSold, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		if id.Valid {
			line.Product = &models.Product{
				ID:        id.Int64,
				Name:      name.String,
				Price:     price.Decimal,
				Stock:     int(stock.Int64),
				TotalSold: int(totalSold.Int64),
				CreatedAt: createdAt.Time,
			}
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *cartRepository) LockCartTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartLine, error) {
	query := `SELECT product_id, quantity FROM cart_items
	          WHERE user_id = $1 AND quantity > 0
	          ORDER BY product_id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}
	defer rows.Close()

	lines := make([]*models.CartLine, 0)
	for rows.Next() {
		line := &models.CartLine{UserID: userID}
		if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}
	return lines, nil
}

func (r *cartRepository) ClearCartTx(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
	res, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	return res.RowsAffected()
}

func (r *cartRepository) AddItem(ctx context.Context, userID, productID int64, quantity int) (*models.CartLine, error) {
	query := `INSERT INTO cart_items (user_id, product_id, quantity, updated_at)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (user_id, product_id) DO UPDATE
	          SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	          RETURNING quantity`
	line := &models.CartLine{UserID: userID, ProductID: productID}
	if err := r.db.QueryRowContext(ctx, query, userID, productID, quantity, time.Now().UTC()).Scan(&line.Quantity); err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}
	return line, nil
}

func (r *cartRepository) RemoveItem(ctx context.Context, userID, productID int64, quantity int) (*models.CartLine, error) {
	if quantity > 0 {
		// частичное уменьшение, только если после него останется хотя бы одна единица
		line := &models.CartLine{UserID: userID, ProductID: productID}
		err := r.db.QueryRowContext(ctx,
			`UPDATE cart_items SET quantity = quantity - $3, updated_at = $4
			 WHERE user_id = $1 AND product_id = $2 AND quantity > $3
			 RETURNING quantity`,
			userID, productID, quantity, time.Now().UTC(),
		).Scan(&line.Quantity)
		if err == nil {
			return line, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to reduce cart item: %w", err)
		}
	}

	res, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2", userID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrCartLineNotFound
	}
	return nil, nil
}
