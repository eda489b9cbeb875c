package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rl1809/order-saga/internal/core/domain"
	"github.com/rl1809/order-saga/internal/port"
)

// Subscription binds a durable queue to one routing key of the orders
// exchange.
type Subscription struct {
	Queue      string
	RoutingKey string
	// Consumer is the consumer tag; empty lets the broker pick one.
	Consumer string
	// Timeout bounds a single handler call; zero means no bound.
	Timeout time.Duration
}

var (
	OrderCreatedSubscription = Subscription{
		Queue:      "payment_service_queue",
		RoutingKey: domain.RoutingKeyOrderCreated,
	}
	PaymentSuccessfulSubscription = Subscription{
		Queue:      "order_service_payment_queue",
		RoutingKey: domain.RoutingKeyPaymentSuccessful,
	}
)

var errDeliveriesClosed = errors.New("delivery channel closed")

// Subscribe consumes sub one message at a time until ctx is cancelled. It
// waits for the connection to be ready and resubscribes after a channel or
// connection loss.
func (c *Connection) Subscribe(ctx context.Context, sub Subscription, handler port.MessageHandler) error {
	for {
		conn, err := c.waitReady(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		err = c.consume(ctx, conn, sub, handler)
		if ctx.Err() != nil {
			return nil
		}

		c.logger.Warn("consumer interrupted, resubscribing",
			"queue", sub.Queue,
			"retry_in", c.policy.Interval.String(),
			"error", err,
		)
		if err := c.policy.wait(ctx, c.done); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (c *Connection) consume(ctx context.Context, conn *amqp.Connection, sub Subscription, handler port.MessageHandler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := declareQueue(ch, sub); err != nil {
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(sub.Queue, sub.Consumer, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", sub.Queue, err)
	}

	c.logger.Info("waiting for messages", "queue", sub.Queue, "routing_key", sub.RoutingKey)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			c.dispatch(ctx, sub, d, handler)
		}
	}
}

func declareQueue(ch *amqp.Channel, sub Subscription) error {
	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(sub.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", sub.Queue, err)
	}
	if err := ch.QueueBind(q.Name, sub.RoutingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", sub.Queue, err)
	}
	return nil
}

// dispatch runs the handler detached from ctx cancellation so a shutdown does
// not abort a message half way; the message is settled before returning.
func (c *Connection) dispatch(ctx context.Context, sub Subscription, d amqp.Delivery, handler port.MessageHandler) {
	msgCtx := context.WithoutCancel(ctx)
	if sub.Timeout > 0 {
		var cancel context.CancelFunc
		msgCtx, cancel = context.WithTimeout(msgCtx, sub.Timeout)
		defer cancel()
	}

	decision := c.handle(msgCtx, sub, d, handler)
	if err := settle(d, decision); err != nil {
		c.logger.Error("failed to settle message",
			"queue", sub.Queue,
			"delivery_tag", d.DeliveryTag,
			"decision", decision.String(),
			"error", err,
		)
	}
}

func (c *Connection) handle(ctx context.Context, sub Subscription, d amqp.Delivery, handler port.MessageHandler) (decision port.Decision) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("handler panicked, discarding message",
				"queue", sub.Queue,
				"message_id", d.MessageId,
				"panic", fmt.Sprint(r),
			)
			decision = port.Discard
		}
	}()
	return handler(ctx, d.Body)
}

// settle translates a decision into the wire-level acknowledgement.
func settle(d amqp.Delivery, decision port.Decision) error {
	switch decision {
	case port.Ack:
		return d.Ack(false)
	case port.Requeue:
		return d.Nack(false, true)
	default:
		return d.Nack(false, false)
	}
}
