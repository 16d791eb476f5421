package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/linemk/grocery-shop/internal/app"
	"github.com/linemk/grocery-shop/internal/config"
	"github.com/linemk/grocery-shop/internal/lib/logger"
	"github.com/linemk/grocery-shop/internal/service"
	"github.com/linemk/grocery-shop/internal/storage"
	"github.com/pkg/errors"
)

func main() {
	// .env необязателен, переменные могут прийти из окружения
	_ = godotenv.Load()

	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	application, err := app.NewApp(startCtx, log, cfg)
	cancelStart()
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.Close()

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	cartRepo := storage.NewCartRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	categoryRepo := storage.NewCategoryRepository(application.DB)
	wishlistRepo := storage.NewWishlistRepository(application.DB)

	orderCache := application.OrderCache()

	services := app.Services{
		Auth: service.NewAuthService(log, userRepo, time.Duration(cfg.JWT.TokenTTL)*time.Minute, cfg.JWT.Secret),
		Checkout: service.NewCheckoutService(log, application.DB, cartRepo, productRepo, orderRepo,
			application.OrderPublisher(), orderCache,
			service.CheckoutConfig{
				MaxAttempts: cfg.Checkout.MaxAttempts,
				BaseBackoff: cfg.Checkout.BaseBackoff,
				LockTimeout: cfg.Checkout.LockTimeout,
				Isolation:   cfg.Checkout.IsolationLevel(),
			}),
		Cart:       service.NewCartService(log, cartRepo),
		Catalog:    service.NewCatalogService(log, productRepo, cfg.Catalog.LowStockThreshold),
		Categories: service.NewCategoryService(log, categoryRepo),
		Wishlist:   service.NewWishlistService(log, wishlistRepo),
		Orders:     service.NewOrderService(log, orderRepo, orderCache),
	}

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      app.NewRouter(log, cfg.JWT.Secret, services),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
