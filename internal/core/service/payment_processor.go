package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rl1809/order-saga/internal/core/domain"
	"github.com/rl1809/order-saga/internal/port"
)

// PaymentProcessor consumes order.created and charges the order.
type PaymentProcessor struct {
	payments  port.PaymentRepository
	gateway   port.PaymentGateway
	publisher port.EventPublisher
	onFailure port.Decision
	logger    *slog.Logger
}

// NewPaymentProcessor wires the processor. onFailure settles messages whose
// processing failed after decoding; payment creation is not idempotent, so
// deployments normally use port.Discard.
func NewPaymentProcessor(payments port.PaymentRepository, gateway port.PaymentGateway, publisher port.EventPublisher, onFailure port.Decision, logger *slog.Logger) *PaymentProcessor {
	return &PaymentProcessor{
		payments:  payments,
		gateway:   gateway,
		publisher: publisher,
		onFailure: onFailure,
		logger:    logger,
	}
}

func (p *PaymentProcessor) Handle(ctx context.Context, body []byte) port.Decision {
	event, err := domain.DecodeOrderCreated(body)
	if err != nil {
		p.logger.Warn("discarding malformed order.created", "error", err)
		return port.Discard
	}

	p.logger.Info("received order.created",
		"order_id", event.OrderID,
		"total_amount", event.TotalAmount.String(),
	)

	if err := p.process(ctx, event); err != nil {
		p.logger.Error("payment processing failed",
			"order_id", event.OrderID,
			"decision", p.onFailure.String(),
			"error", err,
		)
		return p.onFailure
	}

	return port.Ack
}

func (p *PaymentProcessor) process(ctx context.Context, event domain.OrderCreated) error {
	payment, err := p.payments.CreateProcessing(ctx, event.OrderID, event.TotalAmount)
	if errors.Is(err, domain.ErrDuplicatePayment) {
		return p.resume(ctx, payment)
	}
	if err != nil {
		return fmt.Errorf("%w: create payment: %w", domain.ErrPersistence, err)
	}

	p.logger.Info("processing payment", "payment_id", payment.ID, "order_id", event.OrderID)

	receipt, err := p.gateway.Charge(ctx, event.OrderID, event.TotalAmount)
	if err != nil {
		if markErr := p.payments.MarkFailed(ctx, payment.ID); markErr != nil {
			p.logger.Error("failed to mark payment failed", "payment_id", payment.ID, "error", markErr)
		}
		return fmt.Errorf("charge order %d: %w", event.OrderID, err)
	}

	if err := p.payments.MarkSuccessful(ctx, payment.ID, receipt); err != nil {
		return fmt.Errorf("%w: mark payment %d successful: %w", domain.ErrPersistence, payment.ID, err)
	}
	p.logger.Info("payment successful",
		"payment_id", payment.ID,
		"order_id", event.OrderID,
		"transaction_id", receipt.TransactionID,
	)

	return p.announce(ctx, domain.PaymentSuccessful{
		OrderID:       event.OrderID,
		PaymentID:     payment.ID,
		TransactionID: receipt.TransactionID,
	})
}

// resume handles a redelivered order.created for an order that already has a
// payment. Only a successful payment is announced again.
func (p *PaymentProcessor) resume(ctx context.Context, payment *domain.Payment) error {
	if payment == nil {
		return fmt.Errorf("%w: duplicate payment without record", domain.ErrPersistence)
	}

	switch payment.Status {
	case domain.PaymentStatusSuccessful:
	case domain.PaymentStatusProcessing:
		// the charge outcome was never recorded; the order stays PendingPayment
		p.logger.Error("payment stuck in processing, needs manual reconciliation",
			"payment_id", payment.ID,
			"order_id", payment.OrderID,
		)
		return nil
	default:
		p.logger.Warn("payment already exists, skipping",
			"payment_id", payment.ID,
			"order_id", payment.OrderID,
			"status", string(payment.Status),
		)
		return nil
	}

	p.logger.Info("payment already successful, re-announcing",
		"payment_id", payment.ID,
		"order_id", payment.OrderID,
	)
	return p.announce(ctx, domain.PaymentSuccessful{
		OrderID:       payment.OrderID,
		PaymentID:     payment.ID,
		TransactionID: payment.TransactionID,
	})
}

func (p *PaymentProcessor) announce(ctx context.Context, event domain.PaymentSuccessful) error {
	body, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshal payment successful: %w", err)
	}

	messageID := fmt.Sprintf("payment-%d", event.PaymentID)
	if err := p.publisher.Publish(ctx, domain.RoutingKeyPaymentSuccessful, messageID, body); err != nil {
		return fmt.Errorf("publish payment successful: %w", err)
	}

	p.logger.Info("published event",
		"routing_key", domain.RoutingKeyPaymentSuccessful,
		"order_id", event.OrderID,
		"payment_id", event.PaymentID,
	)
	return nil
}
