package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient принимает как redis:// URL, так и host:port, и проверяет соединение.
func NewClient(ctx context.Context, address string) (*redis.Client, error) {
	const op = "cache.NewClient"

	opts := &redis.Options{Addr: address}
	if strings.Contains(address, "://") {
		parsed, err := redis.ParseURL(address)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid redis url: %w", op, err)
		}
		opts = parsed
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping failed: %w", op, err)
	}
	return rdb, nil
}
