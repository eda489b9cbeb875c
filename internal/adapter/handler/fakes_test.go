package handler

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/order-saga/internal/core/domain"
	"github.com/rl1809/order-saga/internal/core/service"
	"github.com/rl1809/order-saga/internal/port"
)

var testLogger = slog.New(slog.DiscardHandler)

var errStoreDown = errors.New("store down")

type stubCartClient struct {
	cart domain.CartSnapshot
	err  error
}

func (s stubCartClient) GetCart(ctx context.Context, userID string) (domain.CartSnapshot, error) {
	return s.cart, s.err
}

type memOrderRepo struct {
	mu        sync.Mutex
	orders    map[int64]domain.Order
	createErr error
	getErr    error
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[int64]domain.Order)}
}

func (m *memOrderRepo) CreateOrder(ctx context.Context, order *domain.Order, announce port.Announce) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	created := *order
	created.ID = int64(len(m.orders) + 1)
	if _, err := announce(created); err != nil {
		return err
	}
	m.orders[created.ID] = created
	order.ID = created.ID
	return nil
}

func (m *memOrderRepo) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	o, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &o, nil
}

func (m *memOrderRepo) MarkOrderPaid(ctx context.Context, orderID int64) (bool, error) {
	return false, nil
}

func bakerStreetCart() domain.CartSnapshot {
	return domain.CartSnapshot{
		Items: []domain.CartItem{
			{ProductID: "p1", Quantity: 2, Price: decimal.NewFromInt(10)},
		},
		TotalAmount: decimal.NewFromInt(20),
	}
}

func newTestOrderService(carts port.CartClient, orders port.OrderRepository) *service.OrderService {
	return service.NewOrderService(carts, orders, testLogger)
}
