package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_GrowsExponentiallyWithBoundedJitter(t *testing.T) {
	base := 10 * time.Millisecond
	for attempt := 1; attempt <= 4; attempt++ {
		exp := base * time.Duration(1<<(attempt-1))
		for i := 0; i < 50; i++ {
			d := backoff(base, attempt)
			assert.GreaterOrEqual(t, d, exp)
			assert.LessOrEqual(t, d, exp+exp/2)
		}
	}
}

func TestBackoff_ZeroBase(t *testing.T) {
	assert.Equal(t, time.Duration(0), backoff(0, 3))
}

func TestSleepCtx(t *testing.T) {
	assert.NoError(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, sleepCtx(ctx, 0), context.Canceled)
}
