package port

import (
	"context"

	"github.com/rl1809/order-saga/internal/core/domain"
)

// Announce builds the outbox message for an order after its id is known.
type Announce func(order domain.Order) (domain.OutboxMessage, error)

type OrderRepository interface {
	// CreateOrder persists the order, its items and the announcing outbox
	// message in one transaction and sets order.ID. Nothing is written on error.
	CreateOrder(ctx context.Context, order *domain.Order, announce Announce) error

	// GetOrder returns the order with its items, or domain.ErrOrderNotFound.
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)

	// MarkOrderPaid sets status Paid and refreshes updated_at. Reports whether
	// a row matched.
	MarkOrderPaid(ctx context.Context, orderID int64) (bool, error)
}

type OutboxRepository interface {
	// DrainOutbox locks up to limit unsent messages in id order and calls
	// publish for each, marking it sent on success. It stops at the first
	// publish error and returns the number of messages sent.
	DrainOutbox(ctx context.Context, limit int, publish func(context.Context, domain.OutboxMessage) error) (int, error)
}
