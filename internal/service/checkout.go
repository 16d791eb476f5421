package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/linemk/grocery-shop/internal/domain/models"
	"github.com/linemk/grocery-shop/internal/storage"
	"github.com/shopspring/decimal"
)

// CheckoutService превращает корзину пользователя в заказ.
type CheckoutService interface {
	Checkout(ctx context.Context, userID int64) (*models.OrderView, error)
}

// OrderPublisher уведомляет внешние системы о созданном заказе.
type OrderPublisher interface {
	PublishOrderPlaced(ctx context.Context, order *models.OrderView) error
}

// CheckoutState состояния одной попытки оформления; снаружи видны только конечные.
type CheckoutState string

const (
	StatePending    CheckoutState = "pending"
	StateValidating CheckoutState = "validating"
	StateCommitting CheckoutState = "committing"
	StateCommitted  CheckoutState = "committed"
	StateRejected   CheckoutState = "rejected"
)

// CheckoutConfig параметры транзакции резервирования.
type CheckoutConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	LockTimeout time.Duration
	Isolation   sql.IsolationLevel
}

type checkoutService struct {
	log         *slog.Logger
	db          *sql.DB
	cartRepo    storage.CartStorage
	productRepo storage.ProductStorage
	orderRepo   storage.OrderStorage
	publisher   OrderPublisher
	cache       OrderCache
	cfg         CheckoutConfig
}

// NewCheckoutService publisher и cache необязательны (nil - отключены).
func NewCheckoutService(
	log *slog.Logger,
	db *sql.DB,
	cartRepo storage.CartStorage,
	productRepo storage.ProductStorage,
	orderRepo storage.OrderStorage,
	publisher OrderPublisher,
	cache OrderCache,
	cfg CheckoutConfig,
) CheckoutService {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &checkoutService{
		log:         log,
		db:          db,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		publisher:   publisher,
		cache:       cache,
		cfg:         cfg,
	}
}

// Checkout оформляет заказ по корзине пользователя.
// Либо все позиции зарезервированы, заказ создан и корзина очищена, либо не изменилось ничего.
// Временные конфликты БД повторяются до cfg.MaxAttempts раз.
func (s *checkoutService) Checkout(ctx context.Context, userID int64) (*models.OrderView, error) {
	const op = "service.CheckoutService.Checkout"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	// быстрая проверка пустой корзины до открытия транзакции
	snapshot, err := s.cartRepo.GetCartSnapshot(ctx, userID)
	if err != nil {
		logger.Error("failed to read cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to read cart: %w", op, err)
	}
	if len(snapshot) == 0 {
		logger.Info("checkout rejected: cart is empty")
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyCart)
	}

	var order *models.Order
	for attempt := 1; ; attempt++ {
		order, err = s.reserve(ctx, logger.With(slog.Int("attempt", attempt)), userID)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrTransientConflict) || attempt >= s.cfg.MaxAttempts {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		delay := backoff(s.cfg.BaseBackoff, attempt)
		logger.Warn("transient conflict, retrying checkout",
			slog.Int("attempt", attempt), slog.Duration("delay", delay), slog.Any("error", err))
		if err := sleepCtx(ctx, delay); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrTransientConflict, err)
		}
	}

	view := MaterializeOrder(order)
	s.afterCommit(ctx, logger, view)

	logger.Info("checkout completed successfully",
		slog.Int64("orderID", order.ID), slog.String("total", view.TotalAmount))
	return view, nil
}

// reserve одна попытка транзакции резервирования:
// блокировки в порядке product id -> проверка всех позиций -> списание -> заказ -> очистка корзины -> commit.
func (s *checkoutService) reserve(ctx context.Context, logger *slog.Logger, userID int64) (*models.Order, error) {
	state := StatePending
	logger.Debug("checkout state", slog.String("state", string(state)))

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: s.cfg.Isolation})
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, classify(fmt.Errorf("failed to begin transaction: %w", err))
	}
	// после успешного Commit откат вернёт sql.ErrTxDone и ничего не сделает
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
	}()

	if err := storage.SetLockTimeout(ctx, tx, s.cfg.LockTimeout); err != nil {
		return nil, classify(err)
	}

	state = StateValidating
	logger.Debug("checkout state", slog.String("state", string(state)))

	lines, err := s.cartRepo.LockCartTx(ctx, tx, userID)
	if err != nil {
		logger.Error("failed to lock cart", slog.Any("error", err))
		return nil, classify(err)
	}
	if len(lines) == 0 {
		// корзину успели оформить параллельным запросом того же пользователя
		logger.Info("checkout rejected: cart is empty")
		return nil, ErrEmptyCart
	}

	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	products, err := s.productRepo.LockProductsTx(ctx, tx, ids)
	if err != nil {
		logger.Error("failed to lock products", slog.Any("error", err))
		return nil, classify(err)
	}

	// проверяем все позиции до первого изменения
	if shortfalls := validateLines(lines, products); len(shortfalls) > 0 {
		state = StateRejected
		logger.Warn("checkout rejected: insufficient stock",
			slog.String("state", string(state)), slog.Int("items", len(shortfalls)))
		return nil, &InsufficientStockError{Items: shortfalls}
	}

	total := decimal.Zero
	staged := make([]models.OrderLine, 0, len(lines))
	for _, line := range lines {
		product := products[line.ProductID]

		if _, err := s.productRepo.ReserveStockTx(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return nil, s.reserveError(logger, err, product, line)
		}

		price := product.Price
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))

		productID := product.ID
		staged = append(staged, models.OrderLine{
			ProductID:       &productID,
			ProductName:     product.Name,
			Quantity:        line.Quantity,
			PriceAtPurchase: price,
		})
	}

	state = StateCommitting
	logger.Debug("checkout state", slog.String("state", string(state)))

	order, err := s.orderRepo.CreateOrderTx(ctx, tx, userID, total)
	if err != nil {
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, classify(err)
	}
	if err := s.orderRepo.CreateOrderLinesTx(ctx, tx, order.ID, staged); err != nil {
		logger.Error("failed to create order items", slog.Any("error", err))
		return nil, classify(err)
	}
	if _, err := s.cartRepo.ClearCartTx(ctx, tx, userID); err != nil {
		logger.Error("failed to clear cart", slog.Any("error", err))
		return nil, classify(err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, classify(fmt.Errorf("failed to commit transaction: %w", err))
	}

	state = StateCommitted
	logger.Debug("checkout state", slog.String("state", string(state)))

	order.Lines = staged
	return order, nil
}

// validateLines сравнивает запрошенное количество с остатком по заблокированным строкам товаров.
func validateLines(lines []*models.CartLine, products map[int64]*models.Product) []StockShortfall {
	var shortfalls []StockShortfall
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			shortfalls = append(shortfalls, StockShortfall{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Missing:   true,
			})
			continue
		}
		if !product.CanReserve(line.Quantity) {
			shortfalls = append(shortfalls, StockShortfall{
				ProductID: product.ID,
				Product:   product.Name,
				Available: product.Stock,
				Requested: line.Quantity,
			})
		}
	}
	return shortfalls
}

// reserveError переводит отказ условного списания в ошибку оформления.
// Под блокировкой строки этого происходить не должно, но молча игнорировать нельзя.
func (s *checkoutService) reserveError(logger *slog.Logger, err error, product *models.Product, line *models.CartLine) error {
	var shortfall *storage.ShortfallError
	switch {
	case errors.As(err, &shortfall):
		logger.Warn("conditional stock decrement rejected", slog.Int64("productID", shortfall.ProductID))
		return &InsufficientStockError{Items: []StockShortfall{{
			ProductID: shortfall.ProductID,
			Product:   product.Name,
			Available: shortfall.Available,
			Requested: shortfall.Requested,
		}}}
	case errors.Is(err, storage.ErrProductNotFound):
		return &InsufficientStockError{Items: []StockShortfall{{
			ProductID: line.ProductID,
			Requested: line.Quantity,
			Missing:   true,
		}}}
	default:
		logger.Error("failed to reserve stock", slog.Any("error", err))
		return classify(err)
	}
}

// afterCommit публикация и кэширование после фиксации: заказ уже создан,
// поэтому ошибки здесь только логируются.
func (s *checkoutService) afterCommit(ctx context.Context, logger *slog.Logger, view *models.OrderView) {
	if s.publisher != nil {
		if err := s.publisher.PublishOrderPlaced(ctx, view); err != nil {
			logger.Error("failed to publish order placed event", slog.Any("error", err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, view); err != nil {
			logger.Warn("failed to cache order", slog.Any("error", err))
		}
	}
}

// classify помечает ошибки блокировок/сериализации как ErrTransientConflict.
func classify(err error) error {
	if storage.IsConflict(err) {
		return fmt.Errorf("%w: %w", ErrTransientConflict, err)
	}
	return err
}
