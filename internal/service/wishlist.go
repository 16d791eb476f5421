package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/grocery-shop/internal/domain/models"
	"github.com/linemk/grocery-shop/internal/storage"
)

// WishlistService избранное покупателя. На склад и корзину не влияет.
type WishlistService interface {
	// Toggle возвращает добавленную позицию или nil с added=false, если товар убран из избранного.
	Toggle(ctx context.Context, userID, productID int64) (item *models.WishlistItem, added bool, err error)
	List(ctx context.Context, userID int64) ([]*models.WishlistItem, error)
}

type wishlistService struct {
	log          *slog.Logger
	wishlistRepo storage.WishlistStorage
}

func NewWishlistService(log *slog.Logger, wishlistRepo storage.WishlistStorage) WishlistService {
	return &wishlistService{
		log:          log,
		wishlistRepo: wishlistRepo,
	}
}

func (s *wishlistService) Toggle(ctx context.Context, userID, productID int64) (*models.WishlistItem, bool, error) {
	const op = "service.WishlistService.Toggle"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID))

	item, added, err := s.wishlistRepo.ToggleItem(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, false, fmt.Errorf("%s: %w", op, ErrProductNotFound)
		}
		logger.Error("failed to toggle wishlist item", slog.Any("error", err))
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	logger.Debug("wishlist toggled", slog.Bool("added", added))
	return item, added, nil
}

func (s *wishlistService) List(ctx context.Context, userID int64) ([]*models.WishlistItem, error) {
	const op = "service.WishlistService.List"

	items, err := s.wishlistRepo.ListItems(ctx, userID)
	if err != nil {
		s.log.Error("failed to list wishlist", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}
