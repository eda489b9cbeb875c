package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rl1809/order-saga/internal/core/domain"
	"github.com/rl1809/order-saga/internal/port"
)

const defaultOutboxInterval = 500 * time.Millisecond

// OutboxRelay publishes committed outbox messages to the broker.
type OutboxRelay struct {
	outbox    port.OutboxRepository
	publisher port.EventPublisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewOutboxRelay(outbox port.OutboxRepository, publisher port.EventPublisher, interval time.Duration, batchSize int, logger *slog.Logger) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 1
	}
	if interval <= 0 {
		interval = defaultOutboxInterval
	}
	return &OutboxRelay{
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run drains the outbox every interval until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		for {
			sent, err := r.Drain(ctx)
			if err != nil || sent < r.batchSize {
				break
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Drain relays one batch and returns how many messages were sent.
func (r *OutboxRelay) Drain(ctx context.Context) (int, error) {
	sent, err := r.outbox.DrainOutbox(ctx, r.batchSize, r.publish)
	if err != nil {
		if errors.Is(err, domain.ErrBrokerUnavailable) {
			r.logger.Debug("outbox relay waiting for broker", "sent", sent)
		} else if ctx.Err() == nil {
			r.logger.Warn("outbox relay failed", "sent", sent, "error", err)
		}
		return sent, err
	}
	if sent > 0 {
		r.logger.Info("outbox relayed", "sent", sent)
	}
	return sent, nil
}

func (r *OutboxRelay) publish(ctx context.Context, msg domain.OutboxMessage) error {
	if err := r.publisher.Publish(ctx, msg.RoutingKey, msg.MessageID(), msg.Payload); err != nil {
		return err
	}

	r.logger.Info("published event",
		"routing_key", msg.RoutingKey,
		"order_id", msg.AggregateID,
		"message_id", msg.MessageID(),
	)
	return nil
}
