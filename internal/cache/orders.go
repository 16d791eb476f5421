package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/linemk/grocery-shop/internal/domain/models"
	"github.com/redis/go-redis/v9"
)

type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// OrderCache хранит OrderView в redis под ключом order:<user>:<id>.
// Заказ после оформления не меняется, поэтому инвалидации нет, только TTL.
type OrderCache struct {
	rdb kv
	ttl time.Duration
}

func NewOrderCache(rdb kv, ttl time.Duration) *OrderCache {
	return &OrderCache{rdb: rdb, ttl: ttl}
}

func orderKey(userID, orderID int64) string {
	return fmt.Sprintf("order:%d:%d", userID, orderID)
}

// Get возвращает (nil, false, nil) при промахе.
func (c *OrderCache) Get(ctx context.Context, userID, orderID int64) (*models.OrderView, bool, error) {
	const op = "cache.OrderCache.Get"

	raw, err := c.rdb.Get(ctx, orderKey(userID, orderID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	var view models.OrderView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, false, fmt.Errorf("%s: failed to decode order: %w", op, err)
	}
	return &view, true, nil
}

func (c *OrderCache) Set(ctx context.Context, order *models.OrderView) error {
	const op = "cache.OrderCache.Set"

	raw, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("%s: failed to encode order: %w", op, err)
	}
	if err := c.rdb.Set(ctx, orderKey(order.UserID, order.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
