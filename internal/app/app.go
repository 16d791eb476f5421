package app

import (
	"context"
	"database/sql"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/linemk/grocery-shop/internal/cache"
	"github.com/linemk/grocery-shop/internal/config"
	"github.com/linemk/grocery-shop/internal/events"
	"github.com/linemk/grocery-shop/internal/service"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const producerBuffer = 256

type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *sql.DB
	Redis    *redis.Client    // nil, если кэш выключен
	Producer *events.Producer // nil, если kafka выключена
}

// NewApp создаёт новый экземпляр App: БД обязательна, redis и kafka подключаются по конфигу
func NewApp(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	app := &App{
		Config: cfg,
		Logger: log,
		DB:     db,
	}

	if cfg.Redis.Enabled {
		rdb, err := cache.NewClient(ctx, cfg.Redis.Address)
		if err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to connect to redis")
		}
		app.Redis = rdb
		log.Info("order cache enabled", slog.Duration("ttl", cfg.Redis.OrderTTL))
	}

	if cfg.Kafka.Enabled {
		if len(cfg.Kafka.Brokers) == 0 {
			app.Close()
			return nil, errors.New("kafka is enabled but no brokers are configured")
		}
		app.Producer = events.NewProducer(log, cfg.Kafka.Brokers, cfg.Kafka.Topic, producerBuffer)
		app.Producer.Start()
		log.Info("order events enabled", slog.String("topic", cfg.Kafka.Topic))
	}

	return app, nil
}

// OrderCache возвращает nil-интерфейс, если redis выключен
func (a *App) OrderCache() service.OrderCache {
	if a.Redis == nil {
		return nil
	}
	return cache.NewOrderCache(a.Redis, a.Config.Redis.OrderTTL)
}

// OrderPublisher возвращает nil-интерфейс, если kafka выключена
func (a *App) OrderPublisher() service.OrderPublisher {
	if a.Producer == nil {
		return nil
	}
	return a.Producer
}

// Close сначала досылает события, потом закрывает соединения.
func (a *App) Close() {
	if a.Producer != nil {
		if err := a.Producer.Close(); err != nil {
			a.Logger.Error("failed to close event producer", slog.Any("error", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("failed to close redis", slog.Any("error", err))
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("failed to close database", slog.Any("error", err))
	}
}
