package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/linemk/grocery-shop/internal/domain/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKV хранилище в памяти с теми же командами, что использует кэш
type fakeKV struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.data[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestOrderCache_SetThenGet(t *testing.T) {
	kv := newFakeKV()
	c := NewOrderCache(kv, time.Minute)

	productID := int64(3)
	view := &models.OrderView{
		ID:          7,
		UserID:      42,
		TotalAmount: "27.00",
		Items:       []models.OrderItemView{{ProductID: &productID, Product: "milk", Quantity: 2, PriceAtPurchase: "1.20"}},
	}
	require.NoError(t, c.Set(context.Background(), view))
	assert.Equal(t, time.Minute, kv.ttls["order:42:7"])

	got, ok, err := c.Get(context.Background(), 42, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, view.TotalAmount, got.TotalAmount)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "milk", got.Items[0].Product)
	assert.Equal(t, productID, *got.Items[0].ProductID)
}

func TestOrderCache_Miss(t *testing.T) {
	c := NewOrderCache(newFakeKV(), time.Minute)

	got, ok, err := c.Get(context.Background(), 42, 7)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestOrderCache_OtherUserMisses(t *testing.T) {
	c := NewOrderCache(newFakeKV(), time.Minute)
	require.NoError(t, c.Set(context.Background(), &models.OrderView{ID: 7, UserID: 42}))

	_, ok, err := c.Get(context.Background(), 43, 7)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestOrderCache_Errors(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("connection refused")
	kv.setErr = errors.New("connection refused")
	c := NewOrderCache(kv, time.Minute)

	_, ok, err := c.Get(context.Background(), 1, 1)
	assert.Error(t, err)
	assert.False(t, ok)

	assert.Error(t, c.Set(context.Background(), &models.OrderView{ID: 1, UserID: 1}))
}

func TestOrderCache_CorruptValue(t *testing.T) {
	kv := newFakeKV()
	kv.data["order:1:1"] = "{not json"
	c := NewOrderCache(kv, time.Minute)

	_, ok, err := c.Get(context.Background(), 1, 1)
	assert.Error(t, err)
	assert.False(t, ok)
}
