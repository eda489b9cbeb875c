package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rl1809/order-saga/internal/core/domain"
	"github.com/rl1809/order-saga/internal/port"
)

type OrderService struct {
	carts  port.CartClient
	orders port.OrderRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewOrderService(carts port.CartClient, orders port.OrderRepository, logger *slog.Logger) *OrderService {
	return &OrderService{
		carts:  carts,
		orders: orders,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder turns the user's cart into a PendingPayment order. The order,
// its items and the OrderCreated outbox message are committed together; the
// event reaches the broker through the outbox relay.
func (s *OrderService) CreateOrder(ctx context.Context, userID, shippingAddress string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, fmt.Errorf("%w: userId is required", domain.ErrInvalidRequest)
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: get cart: %w", domain.ErrUpstreamUnavailable, err)
	}
	if cart.IsEmpty() {
		return 0, domain.ErrEmptyCart
	}
	if err := cart.Validate(); err != nil {
		return 0, fmt.Errorf("%w: cart rejected: %w", domain.ErrUpstreamUnavailable, err)
	}

	order := domain.NewPendingOrder(userID, shippingAddress, cart, s.now())

	err = s.orders.CreateOrder(ctx, &order, announceOrderCreated)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	s.logger.Info("order created",
		"order_id", order.ID,
		"user_id", userID,
		"items", len(order.Items),
		"total_amount", order.TotalAmount.String(),
	)

	return order.ID, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	if orderID <= 0 {
		return nil, fmt.Errorf("%w: orderId must be positive", domain.ErrInvalidRequest)
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	return order, nil
}

func announceOrderCreated(order domain.Order) (domain.OutboxMessage, error) {
	payload, err := domain.OrderCreatedFrom(order).Marshal()
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("marshal order created: %w", err)
	}

	return domain.OutboxMessage{
		AggregateID: order.ID,
		RoutingKey:  domain.RoutingKeyOrderCreated,
		Payload:     payload,
		CreatedAt:   order.CreatedAt,
	}, nil
}
