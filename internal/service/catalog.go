package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/linemk/grocery-shop/internal/domain/models"
	"github.com/linemk/grocery-shop/internal/storage"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidProduct   = errors.New("invalid product")
	ErrProductExists    = errors.New("product already exists")
	ErrNothingToUpdate  = errors.New("nothing to update")
	ErrCategoryNotFound = errors.New("category not found")
)

// CatalogService товары, пополнение склада и отчёты для менеджера.
type CatalogService interface {
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, name string, price decimal.Decimal, stock int, categoryID *int64) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	Restock(ctx context.Context, id int64, quantity int) (*models.Product, error)
	SalesReport(ctx context.Context, sort, category string) ([]*models.SalesReportRow, error)
	LowStock(ctx context.Context) ([]*models.Product, error)
}

type catalogService struct {
	log               *slog.Logger
	productRepo       storage.ProductStorage
	lowStockThreshold int
}

func NewCatalogService(log *slog.Logger, productRepo storage.ProductStorage, lowStockThreshold int) CatalogService {
	return &catalogService{
		log:               log,
		productRepo:       productRepo,
		lowStockThreshold: lowStockThreshold,
	}
}

func (s *catalogService) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	const op = "service.CatalogService.ListProducts"

	products, err := s.productRepo.ListProducts(ctx, filter)
	if err != nil {
		s.log.Error("failed to list products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	const op = "service.CatalogService.GetProduct"

	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrProductNotFound)
		}
		s.log.Error("failed to get product", slog.String("op", op), slog.Int64("productID", id), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return product, nil
}

// CreateProduct название приводится к нижнему регистру без пробелов по краям, цена - к 2 знакам.
// Возвращается строка в том виде, в каком её сохранила БД.
func (s *catalogService) CreateProduct(ctx context.Context, name string, price decimal.Decimal, stock int, categoryID *int64) (*models.Product, error) {
	const op = "service.CatalogService.CreateProduct"
	logger := s.log.With(slog.String("op", op))

	name = normalizeProductName(name)
	if name == "" || price.IsNegative() || stock < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidProduct)
	}

	product, err := s.productRepo.CreateProduct(ctx, &models.Product{
		Name:       name,
		Price:      price.Round(2),
		Stock:      stock,
		CategoryID: categoryID,
	})
	if err != nil {
		if mapped := mapProductWriteError(err); mapped != nil {
			return nil, fmt.Errorf("%s: %w", op, mapped)
		}
		logger.Error("failed to create product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("product created", slog.Int64("productID", product.ID), slog.String("name", product.Name))
	return product, nil
}

// UpdateProduct применяет те же правила, что и CreateProduct, к каждому заданному полю.
// Цены уже оформленных заказов не меняются: они зафиксированы в позициях заказа.
func (s *catalogService) UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error) {
	const op = "service.CatalogService.UpdateProduct"
	logger := s.log.With(slog.String("op", op), slog.Int64("productID", id))

	if patch.IsEmpty() {
		return nil, fmt.Errorf("%s: %w", op, ErrNothingToUpdate)
	}
	if patch.Name != nil {
		name := normalizeProductName(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidProduct)
		}
		patch.Name = &name
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidProduct)
		}
		price := patch.Price.Round(2)
		patch.Price = &price
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidProduct)
	}

	product, err := s.productRepo.UpdateProduct(ctx, id, patch)
	if err != nil {
		if mapped := mapProductWriteError(err); mapped != nil {
			return nil, fmt.Errorf("%s: %w", op, mapped)
		}
		logger.Error("failed to update product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("product updated")
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id int64) error {
	const op = "service.CatalogService.DeleteProduct"
	logger := s.log.With(slog.String("op", op), slog.Int64("productID", id))

	if err := s.productRepo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return fmt.Errorf("%s: %w", op, ErrProductNotFound)
		}
		logger.Error("failed to delete product", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("product deleted")
	return nil
}

// название хранится в нижнем регистре без пробелов по краям
func normalizeProductName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func mapProductWriteError(err error) error {
	switch {
	case errors.Is(err, storage.ErrProductNotFound):
		return ErrProductNotFound
	case errors.Is(err, storage.ErrProductExists):
		return ErrProductExists
	case errors.Is(err, storage.ErrCategoryNotFound):
		return ErrCategoryNotFound
	}
	return nil
}

func (s *catalogService) Restock(ctx context.Context, id int64, quantity int) (*models.Product, error) {
	const op = "service.CatalogService.Restock"
	logger := s.log.With(slog.String("op", op), slog.Int64("productID", id), slog.Int("quantity", quantity))

	if quantity <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}

	product, err := s.productRepo.AddStock(ctx, id, quantity)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrProductNotFound)
		}
		logger.Error("failed to restock product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("product restocked", slog.Int("stock", product.Stock))
	return product, nil
}

func (s *catalogService) SalesReport(ctx context.Context, sort, category string) ([]*models.SalesReportRow, error) {
	const op = "service.CatalogService.SalesReport"

	report, err := s.productRepo.GetSalesReport(ctx, sort, category)
	if err != nil {
		s.log.Error("failed to build sales report", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return report, nil
}

func (s *catalogService) LowStock(ctx context.Context) ([]*models.Product, error) {
	const op = "service.CatalogService.LowStock"

	products, err := s.productRepo.GetLowStock(ctx, s.lowStockThreshold)
	if err != nil {
		s.log.Error("failed to get low stock products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}
