package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/order-saga/internal/core/domain"
)

type memoryCartRepo struct {
	mu    sync.Mutex
	carts map[string]domain.CartSnapshot
}

func (m *memoryCartRepo) GetCart(ctx context.Context, userID string) (domain.CartSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[userID]
	if !ok {
		return domain.CartSnapshot{Items: []domain.CartItem{}, TotalAmount: decimal.Zero}, nil
	}
	return cart, nil
}

func (m *memoryCartRepo) AddItem(ctx context.Context, userID string, item domain.CartItem) (domain.CartSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart := m.carts[userID]
	cart.Add(item)
	m.carts[userID] = cart
	return cart, nil
}

func (m *memoryCartRepo) ClearCart(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

func TestCartService_AddItemRecomputesTotal(t *testing.T) {
	svc := NewCartService(&memoryCartRepo{carts: make(map[string]domain.CartSnapshot)})

	_, err := svc.AddItem(context.Background(), "u1", domain.CartItem{ProductID: "p1", Quantity: 2, Price: decimal.NewFromInt(10)})
	require.NoError(t, err)
	cart, err := svc.AddItem(context.Background(), "u1", domain.CartItem{ProductID: "p2", Quantity: 1, Price: decimal.RequireFromString("0.5")})
	require.NoError(t, err)

	assert.Len(t, cart.Items, 2)
	assert.Equal(t, "20.5", cart.TotalAmount.String())
}

func TestCartService_AddItemValidation(t *testing.T) {
	svc := NewCartService(&memoryCartRepo{carts: make(map[string]domain.CartSnapshot)})

	tests := []struct {
		name string
		user string
		item domain.CartItem
	}{
		{name: "missing user", user: "", item: domain.CartItem{ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(1)}},
		{name: "missing product", user: "u1", item: domain.CartItem{Quantity: 1, Price: decimal.NewFromInt(1)}},
		{name: "zero quantity", user: "u1", item: domain.CartItem{ProductID: "p1", Price: decimal.NewFromInt(1)}},
		{name: "zero price", user: "u1", item: domain.CartItem{ProductID: "p1", Quantity: 1}},
		{name: "negative quantity", user: "u1", item: domain.CartItem{ProductID: "p1", Quantity: -3, Price: decimal.NewFromInt(1)}},
		{name: "sub-cent price", user: "u1", item: domain.CartItem{ProductID: "p1", Quantity: 3, Price: decimal.RequireFromString("3.333")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddItem(context.Background(), tt.user, tt.item)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)

			if tt.user != "" {
				cart, err := svc.GetCart(context.Background(), tt.user)
				require.NoError(t, err)
				assert.True(t, cart.IsEmpty())
			}
		})
	}
}

func TestCartService_ClearCart(t *testing.T) {
	repo := &memoryCartRepo{carts: make(map[string]domain.CartSnapshot)}
	svc := NewCartService(repo)

	_, err := svc.AddItem(context.Background(), "u1", domain.CartItem{ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(3)})
	require.NoError(t, err)
	require.NoError(t, svc.ClearCart(context.Background(), "u1"))

	cart, err := svc.GetCart(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}
