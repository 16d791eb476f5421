package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/linemk/grocery-shop/internal/domain/models"
	"github.com/shopspring/decimal"
)

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrderTx вставляет заказ с уже посчитанной суммой в рамках транзакции.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, userID int64, total decimal.Decimal) (*models.Order, error)
	// CreateOrderLinesTx вставляет позиции заказа с зафиксированной ценой.
	CreateOrderLinesTx(ctx context.Context, tx *sql.Tx, orderID int64, lines []models.OrderLine) error
	// GetOrderByID возвращает заказ пользователя вместе с позициями.
	GetOrderByID(ctx context.Context, userID, orderID int64) (*models.Order, error)
	// GetOrdersByUserID возвращает заказы пользователя, новые сверху.
	GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error)
}

// orderRepository — конкретная реализация OrderStorage.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, userID int64, total decimal.Decimal) (*models.Order, error) {
	order := &models.Order{UserID: userID, TotalAmount: total}
	query := `INSERT INTO orders (user_id, total_amount, created_at)
	          VALUES ($1, $2, NOW()) RETURNING id, created_at`
	if err := tx.QueryRowContext(ctx, query, userID, total).Scan(&order.ID, &order.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) CreateOrderLinesTx(ctx context.Context, tx *sql.Tx, orderID int64, lines []models.OrderLine) error {
	query := `INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
	          VALUES ($1, $2, $3, $4) RETURNING id`
	for i := range lines {
		if err := tx.QueryRowContext(ctx, query, orderID, lines[i].ProductID, lines[i].Quantity, lines[i].PriceAtPurchase).Scan(&lines[i].ID); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
		lines[i].OrderID = orderID
	}
	return nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	order := &models.Order{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, total_amount, created_at FROM orders WHERE id = $1 AND user_id = $2",
		orderID, userID)
	if err := row.Scan(&order.ID, &order.UserID, &order.TotalAmount, &order.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	lines, err := r.getLines(ctx, []int64{order.ID})
	if err != nil {
		return nil, err
	}
	order.Lines = lines[order.ID]
	return order, nil
}

func (r *orderRepository) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	query := `
		SELECT id, user_id, total_amount, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var (
		orders []*models.Order
		ids    []int64
	)
	for rows.Next() {
		order := &models.Order{}
		if err := rows.Scan(&order.ID, &order.UserID, &order.TotalAmount, &order.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	lines, err := r.getLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		order.Lines = lines[order.ID]
	}
	return orders, nil
}

// getLines читает позиции сразу для нескольких заказов, LEFT JOIN - товар мог быть удалён.
func (r *orderRepository) getLines(ctx context.Context, orderIDs []int64) (map[int64][]models.OrderLine, error) {
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, COALESCE(p.name, ''), oi.quantity, oi.price_at_purchase
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	lines := make(map[int64][]models.OrderLine, len(orderIDs))
	for rows.Next() {
		var (
			line      models.OrderLine
			productID sql.NullInt64
		)
		if err := rows.Scan(&line.ID, &line.OrderID, &productID, &line.ProductName, &line.Quantity, &line.PriceAtPurchase); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if productID.Valid {
			id := productID.Int64
			line.ProductID = &id
		}
		lines[line.OrderID] = append(lines[line.OrderID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
