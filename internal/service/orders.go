package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/grocery-shop/internal/domain/models"
	"github.com/linemk/grocery-shop/internal/storage"
)

// OrderCache кэш представлений заказов. Источник правды - БД.
type OrderCache interface {
	Get(ctx context.Context, userID, orderID int64) (*models.OrderView, bool, error)
	Set(ctx context.Context, order *models.OrderView) error
}

var ErrOrderNotFound = errors.New("order not found")

type OrderService interface {
	GetOrder(ctx context.Context, userID, orderID int64) (*models.OrderView, error)
	ListOrders(ctx context.Context, userID int64) ([]*models.OrderView, error)
}

type orderService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
	cache     OrderCache
}

func NewOrderService(log *slog.Logger, orderRepo storage.OrderStorage, cache OrderCache) OrderService {
	return &orderService{
		log:       log,
		orderRepo: orderRepo,
		cache:     cache,
	}
}

// GetOrder сначала смотрит в кэш, при промахе читает из БД и кладёт результат в кэш.
func (s *orderService) GetOrder(ctx context.Context, userID, orderID int64) (*models.OrderView, error) {
	const op = "service.OrderService.GetOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("orderID", orderID))

	if s.cache != nil {
		view, ok, err := s.cache.Get(ctx, userID, orderID)
		if err != nil {
			logger.Warn("order cache read failed", slog.Any("error", err))
		} else if ok {
			return view, nil
		}
	}

	order, err := s.orderRepo.GetOrderByID(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrOrderNotFound)
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	view := MaterializeOrder(order)
	if s.cache != nil {
		if err := s.cache.Set(ctx, view); err != nil {
			logger.Warn("failed to cache order", slog.Any("error", err))
		}
	}
	return view, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID int64) ([]*models.OrderView, error) {
	const op = "service.OrderService.ListOrders"

	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list orders: %w", op, err)
	}

	views := make([]*models.OrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, MaterializeOrder(order))
	}
	return views, nil
}
