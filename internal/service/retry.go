package service

import (
	"context"
	"math/rand"
	"time"
)

// backoff экспоненциальная задержка с джиттером: base * 2^(attempt-1) + [0, половина)
func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	exp := base * time.Duration(1<<(attempt-1))
	jitter := time.Duration(rand.Int63n(int64(exp/2) + 1))
	return exp + jitter
}

// sleepCtx ждёт d или отмены контекста.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
