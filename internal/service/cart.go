package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/grocery-shop/internal/domain/models"
	"github.com/linemk/grocery-shop/internal/storage"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrProductNotFound  = errors.New("product not found")
	ErrCartLineNotFound = errors.New("item not found in cart")
)

// CartView — содержимое корзины с подсчитанными суммами по текущим ценам.
type CartView struct {
	Items []CartItemView `json:"items"`
	Total string         `json:"total"`
}

type CartItemView struct {
	ProductID int64  `json:"product_id"`
	Product   string `json:"product,omitempty"`
	Price     string `json:"price,omitempty"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
	Available bool   `json:"available"`
}

// CartService управление корзиной. Количество в корзине всегда положительное.
type CartService interface {
	GetCart(ctx context.Context, userID int64) (*CartView, error)
	AddToCart(ctx context.Context, userID, productID int64, quantity int) (*models.CartLine, error)
	// RemoveFromCart без quantity (0) удаляет позицию; уменьшение на >= текущего количества тоже удаляет.
	RemoveFromCart(ctx context.Context, userID, productID int64, quantity int) (*models.CartLine, error)
}

type cartService struct {
	log      *slog.Logger
	cartRepo storage.CartStorage
}

func NewCartService(log *slog.Logger, cartRepo storage.CartStorage) CartService {
	return &cartService{
		log:      log,
		cartRepo: cartRepo,
	}
}

func (s *cartService) GetCart(ctx context.Context, userID int64) (*CartView, error) {
	const op = "service.CartService.GetCart"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	lines, err := s.cartRepo.GetCartSnapshot(ctx, userID)
	if err != nil {
		logger.Error("failed to get cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get cart: %w", op, err)
	}

	view := &CartView{Items: make([]CartItemView, 0, len(lines))}
	total := decimal.Zero
	for _, line := range lines {
		item := CartItemView{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal().StringFixed(2),
		}
		if line.Product != nil {
			item.Product = line.Product.Name
			item.Price = line.Product.Price.StringFixed(2)
			item.Available = line.Product.CanReserve(line.Quantity)
		}
		total = total.Add(line.Subtotal())
		view.Items = append(view.Items, item)
	}
	view.Total = total.StringFixed(2)
	return view, nil
}

func (s *cartService) AddToCart(ctx context.Context, userID, productID int64, quantity int) (*models.CartLine, error) {
	const op = "service.CartService.AddToCart"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("userID", userID),
		slog.Int64("productID", productID),
		slog.Int("quantity", quantity),
	)

	if quantity <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}

	line, err := s.cartRepo.AddItem(ctx, userID, productID, quantity)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			logger.Warn("product not found")
			return nil, fmt.Errorf("%s: %w", op, ErrProductNotFound)
		}
		logger.Error("failed to add item to cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to add item: %w", op, err)
	}

	logger.Info("item added to cart", slog.Int("cartQuantity", line.Quantity))
	return line, nil
}

func (s *cartService) RemoveFromCart(ctx context.Context, userID, productID int64, quantity int) (*models.CartLine, error) {
	const op = "service.CartService.RemoveFromCart"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("userID", userID),
		slog.Int64("productID", productID),
		slog.Int("quantity", quantity),
	)

	if quantity < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}

	line, err := s.cartRepo.RemoveItem(ctx, userID, productID, quantity)
	if err != nil {
		if errors.Is(err, storage.ErrCartLineNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrCartLineNotFound)
		}
		logger.Error("failed to remove item from cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to remove item: %w", op, err)
	}

	if line == nil {
		logger.Info("item removed from cart")
	} else {
		logger.Info("cart item quantity reduced", slog.Int("cartQuantity", line.Quantity))
	}
	return line, nil
}
