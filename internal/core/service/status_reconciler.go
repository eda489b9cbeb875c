package service

import (
	"context"
	"log/slog"

	"github.com/rl1809/order-saga/internal/core/domain"
	"github.com/rl1809/order-saga/internal/port"
)

// OrderStatusReconciler consumes payment.successful and marks the order Paid.
// Setting Paid is idempotent, so redelivery after a failure is safe.
type OrderStatusReconciler struct {
	orders    port.OrderRepository
	onFailure port.Decision
	logger    *slog.Logger
}

func NewOrderStatusReconciler(orders port.OrderRepository, onFailure port.Decision, logger *slog.Logger) *OrderStatusReconciler {
	return &OrderStatusReconciler{
		orders:    orders,
		onFailure: onFailure,
		logger:    logger,
	}
}

func (r *OrderStatusReconciler) Handle(ctx context.Context, body []byte) port.Decision {
	event, err := domain.DecodePaymentSuccessful(body)
	if err != nil {
		r.logger.Warn("discarding malformed payment.successful", "error", err)
		return port.Discard
	}

	r.logger.Info("received payment.successful",
		"order_id", event.OrderID,
		"payment_id", event.PaymentID,
	)

	found, err := r.orders.MarkOrderPaid(ctx, event.OrderID)
	if err != nil {
		r.logger.Error("failed to mark order paid",
			"order_id", event.OrderID,
			"decision", r.onFailure.String(),
			"error", err,
		)
		return r.onFailure
	}
	if !found {
		r.logger.Warn("payment for unknown order", "order_id", event.OrderID)
		return port.Ack
	}

	r.logger.Info("order paid", "order_id", event.OrderID)
	return port.Ack
}
