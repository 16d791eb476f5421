package service_test

import (
	"context"
	"testing"

	"github.com/linemk/grocery-shop/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartService_AddAccumulates(t *testing.T) {
	shop := newFakeShop()
	shop.addProduct(1, "apple", "2.50", 10)
	svc := service.NewCartService(discardLogger(), shop)

	_, err := svc.AddToCart(context.Background(), buyer, 1, 2)
	require.NoError(t, err)
	line, err := svc.AddToCart(context.Background(), buyer, 1, 3)
	require.NoError(t, err)

	assert.Equal(t, 5, line.Quantity)
}

func TestCartService_AddRejectsNonPositiveQuantity(t *testing.T) {
	svc := service.NewCartService(discardLogger(), newFakeShop())

	for _, q := range []int{0, -1} {
		_, err := svc.AddToCart(context.Background(), buyer, 1, q)
		assert.ErrorIs(t, err, service.ErrInvalidQuantity)
	}
}

func TestCartService_AddUnknownProduct(t *testing.T) {
	svc := service.NewCartService(discardLogger(), newFakeShop())

	_, err := svc.AddToCart(context.Background(), buyer, 99, 1)
	assert.ErrorIs(t, err, service.ErrProductNotFound)
}

func TestCartService_RemoveFloorsAtZero(t *testing.T) {
	shop := newFakeShop()
	shop.addProduct(1, "apple", "2.50", 10)
	shop.putInCart(buyer, 1, 3)
	svc := service.NewCartService(discardLogger(), shop)

	line, err := svc.RemoveFromCart(context.Background(), buyer, 1, 1)
	require.NoError(t, err)
	require.NotNil(t, line)
	assert.Equal(t, 2, line.Quantity)

	// уменьшение больше текущего количества удаляет позицию
	line, err = svc.RemoveFromCart(context.Background(), buyer, 1, 10)
	require.NoError(t, err)
	assert.Nil(t, line)
	assert.Empty(t, shop.carts[buyer])
}

func TestCartService_RemoveWholeLine(t *testing.T) {
	shop := newFakeShop()
	shop.putInCart(buyer, 1, 3)
	svc := service.NewCartService(discardLogger(), shop)

	line, err := svc.RemoveFromCart(context.Background(), buyer, 1, 0)
	require.NoError(t, err)
	assert.Nil(t, line)

	_, err = svc.RemoveFromCart(context.Background(), buyer, 1, 0)
	assert.ErrorIs(t, err, service.ErrCartLineNotFound)
}

func TestCartService_RemoveNegativeQuantity(t *testing.T) {
	svc := service.NewCartService(discardLogger(), newFakeShop())

	_, err := svc.RemoveFromCart(context.Background(), buyer, 1, -1)
	assert.ErrorIs(t, err, service.ErrInvalidQuantity)
}

func TestCartService_GetCartTotals(t *testing.T) {
	shop := newFakeShop()
	shop.addProduct(1, "apple", "10.00", 5)
	shop.addProduct(2, "milk", "3.50", 2)
	shop.putInCart(buyer, 1, 2)
	shop.putInCart(buyer, 2, 3)
	shop.putInCart(buyer, 7, 1) // товар удалён из каталога
	svc := service.NewCartService(discardLogger(), shop)

	cart, err := svc.GetCart(context.Background(), buyer)
	require.NoError(t, err)

	assert.Equal(t, "30.50", cart.Total)
	require.Len(t, cart.Items, 3)
	assert.Equal(t, "20.00", cart.Items[0].Subtotal)
	assert.True(t, cart.Items[0].Available)
	assert.Equal(t, "10.50", cart.Items[1].Subtotal)
	assert.False(t, cart.Items[1].Available)
	assert.Equal(t, "0.00", cart.Items[2].Subtotal)
	assert.False(t, cart.Items[2].Available)
}

func TestCartService_GetEmptyCart(t *testing.T) {
	svc := service.NewCartService(discardLogger(), newFakeShop())

	cart, err := svc.GetCart(context.Background(), buyer)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, "0.00", cart.Total)
}
