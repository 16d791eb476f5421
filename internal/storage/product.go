package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/linemk/grocery-shop/internal/domain/models"
)

// ProductStorage описывает методы для работы с товарами и складскими счётчиками.
type ProductStorage interface {
	// LockProductsTx блокирует строки товаров строго по возрастанию id и возвращает их состояние.
	// Отсутствующие товары просто не попадают в результат.
	LockProductsTx(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]*models.Product, error)
	// ReserveStockTx условно списывает остаток и увеличивает total_sold.
	ReserveStockTx(ctx context.Context, tx *sql.Tx, productID int64, quantity int) (*models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	// ListProducts фильтр по slug категории; неизвестный slug даёт пустой список.
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	// UpdateProduct меняет только заданные поля patch.
	UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error)
	// DeleteProduct удаляет товар: строки корзин удаляются каскадно, в позициях заказов product_id становится NULL.
	DeleteProduct(ctx context.Context, id int64) error
	AddStock(ctx context.Context, id int64, quantity int) (*models.Product, error)
	GetSalesReport(ctx context.Context, sort, category string) ([]*models.SalesReportRow, error)
	GetLowStock(ctx context.Context, threshold int) ([]*models.Product, error)
}

// ShortfallError возвращается ReserveStockTx, когда на складе меньше, чем запрошено.
// Состояние товара при этом не меняется.
type ShortfallError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

const (
	PopularMost  = "most"
	PopularLeast = "least"

	SortMostSold  = "most_sold"
	SortLeastSold = "least_sold"
)

const productColumns = "id, name, price, stock, total_sold, created_at, category_id"

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт новый репозиторий товаров.
func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		p          = &models.Product{}
		categoryID sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.TotalSold, &p.CreatedAt, &categoryID); err != nil {
		return nil, err
	}
	if categoryID.Valid {
		p.CategoryID = &categoryID.Int64
	}
	return p, nil
}

func (r *productRepository) LockProductsTx(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]*models.Product, error) {
	// ORDER BY id обязателен: строки блокируются в порядке выдачи,
	// единый порядок исключает взаимоблокировку двух оформлений заказа
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}
	defer rows.Close()

	products := make(map[int64]*models.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}
	return products, nil
}

func (r *productRepository) ReserveStockTx(ctx context.Context, tx *sql.Tx, productID int64, quantity int) (*models.Product, error) {
	query := `UPDATE products SET stock = stock - $1, total_sold = total_sold + $1
	          WHERE id = $2 AND stock >= $1
	          RETURNING ` + productColumns
	p, err := scanProduct(tx.QueryRowContext(ctx, query, quantity, productID))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}

	// списание не прошло: выясняем, товара нет или остатка не хватает
	var available int
	if err := tx.QueryRowContext(ctx, "SELECT stock FROM products WHERE id = $1", productID).Scan(&available); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to read stock: %w", err)
	}
	return nil, &ShortfallError{ProductID: productID, Requested: quantity, Available: available}
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *productRepository) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	orderBy := "id"
	switch filter.Popular {
	case PopularMost:
		orderBy = "total_sold DESC, id"
	case PopularLeast:
		orderBy = "total_sold ASC, id"
	}

	query := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if filter.Category != "" {
		query += ` WHERE category_id = (SELECT id FROM categories WHERE slug = $1)`
		args = append(args, filter.Category)
	}
	return r.queryProducts(ctx, query+` ORDER BY `+orderBy, args...)
}

// CreateProduct возвращает сохранённую строку: цена в ней уже округлена столбцом NUMERIC(10,2).
func (r *productRepository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	query := `INSERT INTO products (name, price, stock, category_id) VALUES ($1, $2, $3, $4)
	          RETURNING ` + productColumns
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, product.Name, product.Price, product.Stock, product.CategoryID))
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, ErrProductExists
		case isForeignKeyViolation(err):
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return p, nil
}

// UpdateProduct одним UPDATE, как и AddStock: строка блокируется до конца оператора,
// поэтому смена цены сериализуется с оформлением заказа, а заказ фиксирует цену, прочитанную под блокировкой.
func (r *productRepository) UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error) {
	query := `UPDATE products SET
	              name = COALESCE($1, name),
	              price = COALESCE($2, price),
	              stock = COALESCE($3, stock),
	              category_id = COALESCE($4, category_id)
	          WHERE id = $5
	          RETURNING ` + productColumns
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, patch.Name, patch.Price, patch.Stock, patch.CategoryID, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrProductNotFound
		case isUniqueViolation(err):
			return nil, ErrProductExists
		case isForeignKeyViolation(err):
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return p, nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// AddStock пополняет склад. UPDATE берёт ту же блокировку строки, что и оформление заказа,
// поэтому пополнение сериализуется с резервированием.
func (r *productRepository) AddStock(ctx context.Context, id int64, quantity int) (*models.Product, error) {
	query := `UPDATE products SET stock = stock + $1 WHERE id = $2 RETURNING ` + productColumns
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, quantity, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to add stock: %w", err)
	}
	return p, nil
}

// GetSalesReport товары с продажами; category - slug, пустая строка - все категории.
func (r *productRepository) GetSalesReport(ctx context.Context, sort, category string) ([]*models.SalesReportRow, error) {
	orderBy := "p.id"
	switch sort {
	case SortMostSold:
		orderBy = "p.total_sold DESC, p.id"
	case SortLeastSold:
		orderBy = "p.total_sold ASC, p.id"
	}

	query := `SELECT p.id, p.name, p.total_sold, p.stock, c.name
	          FROM products p
	          LEFT JOIN categories c ON c.id = p.category_id
	          WHERE p.total_sold > 0`
	var args []any
	if category != "" {
		query += ` AND c.slug = $1`
		args = append(args, category)
	}

	rows, err := r.db.QueryContext(ctx, query+` ORDER BY `+orderBy, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales report: %w", err)
	}
	defer rows.Close()

	var report []*models.SalesReportRow
	for rows.Next() {
		var (
			row          = &models.SalesReportRow{}
			categoryName sql.NullString
		)
		if err := rows.Scan(&row.ProductID, &row.Product, &row.Sold, &row.Stock, &categoryName); err != nil {
			return nil, fmt.Errorf("failed to scan sales report row: %w", err)
		}
		if categoryName.Valid {
			row.Category = &categoryName.String
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return report, nil
}

func (r *productRepository) GetLowStock(ctx context.Context, threshold int) ([]*models.Product, error) {
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE stock <= $1 ORDER BY stock, id`, threshold)
}

func (r *productRepository) queryProducts(ctx context.Context, query string, args ...any) ([]*models.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// SetLockTimeout ограничивает ожидание блокировок строк в рамках транзакции.
// При превышении postgres вернёт 55P03, что трактуется как временный конфликт.
func SetLockTimeout(ctx context.Context, tx *sql.Tx, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", timeout.Milliseconds())); err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}
	return nil
}
