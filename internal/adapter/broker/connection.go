// Package broker owns the RabbitMQ connection shared by publishers and
// consumers of the orders exchange.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rl1809/order-saga/internal/core/domain"
)

const (
	ExchangeName = "orders_exchange"
	ExchangeKind = "topic"
)

var ErrClosed = errors.New("broker connection closed")

// ReconnectPolicy retries a failed dial every Interval, without limit.
type ReconnectPolicy struct {
	Interval time.Duration
}

func (p ReconnectPolicy) wait(ctx context.Context, done <-chan struct{}) error {
	timer := time.NewTimer(p.Interval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return ErrClosed
	}
}

type Connection struct {
	url    string
	policy ReconnectPolicy
	logger *slog.Logger
	dial   func(url string) (*amqp.Connection, error)

	mu     sync.RWMutex
	conn   *amqp.Connection
	ready  chan struct{} // closed while conn is usable
	closed bool
	done   chan struct{}

	pubMu sync.Mutex
	pubCh *amqp.Channel
}

func NewConnection(url string, policy ReconnectPolicy, logger *slog.Logger) *Connection {
	return &Connection{
		url:    url,
		policy: policy,
		logger: logger,
		dial:   amqp.Dial,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Connect dials until it succeeds, ctx is cancelled or Close is called. Once
// connected, a lost connection is re-established in the background with the
// same policy.
func (c *Connection) Connect(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		conn, fresh, err := c.open()
		if err == nil {
			if fresh {
				c.logger.Info("connected to rabbitmq", "attempts", attempt)
				go c.watch(conn)
			}
			return nil
		}
		if errors.Is(err, ErrClosed) {
			return err
		}

		c.logger.Warn("failed to connect to rabbitmq",
			"attempt", attempt,
			"retry_in", c.policy.Interval.String(),
			"error", err,
		)
		if err := c.policy.wait(ctx, c.done); err != nil {
			return err
		}
	}
}

// open dials and declares the exchange. fresh is false when another caller
// connected first; the existing connection is returned then.
func (c *Connection) open() (conn *amqp.Connection, fresh bool, err error) {
	if current := c.current(); current != nil {
		return current, false, nil
	}

	conn, err = c.dial(c.url)
	if err != nil {
		return nil, false, fmt.Errorf("dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, false, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil)
	ch.Close()
	if err != nil {
		conn.Close()
		return nil, false, fmt.Errorf("declare exchange: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		conn.Close()
		return nil, false, ErrClosed
	}
	if c.conn != nil && !c.conn.IsClosed() {
		conn.Close()
		return c.conn, false, nil
	}
	c.conn = conn
	select {
	case <-c.ready:
		// the previous connection died before watch reset the signal
		c.ready = make(chan struct{})
	default:
	}
	close(c.ready)
	return conn, true, nil
}

func (c *Connection) current() *amqp.Connection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn
	}
	return nil
}

func (c *Connection) watch(conn *amqp.Connection) {
	lost := conn.NotifyClose(make(chan *amqp.Error, 1))

	var reason *amqp.Error
	select {
	case reason = <-lost:
	case <-c.done:
		return
	}

	c.mu.Lock()
	if c.closed || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.ready = make(chan struct{})
	c.mu.Unlock()

	if reason != nil {
		c.logger.Warn("rabbitmq connection lost, reconnecting", "error", reason.Error())
	} else {
		c.logger.Warn("rabbitmq connection lost, reconnecting")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := c.Connect(ctx); err != nil && !errors.Is(err, ErrClosed) && !errors.Is(err, context.Canceled) {
		c.logger.Error("rabbitmq reconnect aborted", "error", err)
	}
}

func (c *Connection) IsReady() bool {
	return c.current() != nil
}

// waitReady blocks until a usable connection exists.
func (c *Connection) waitReady(ctx context.Context) (*amqp.Connection, error) {
	for {
		c.mu.RLock()
		conn, ready, closed := c.conn, c.ready, c.closed
		c.mu.RUnlock()

		if closed {
			return nil, ErrClosed
		}
		if conn != nil && !conn.IsClosed() {
			return conn, nil
		}

		select {
		case <-ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.done:
			return nil, ErrClosed
		}
	}
}

// Publish sends a persistent JSON message to the orders exchange and waits for
// the broker's confirm. It fails fast with domain.ErrBrokerUnavailable while
// disconnected.
func (c *Connection) Publish(ctx context.Context, routingKey, messageID string, body []byte) error {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	ch, err := c.publishChannel()
	if err != nil {
		return err
	}

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		c.dropPublishChannel()
		return fmt.Errorf("%w: publish %s: %w", domain.ErrBrokerUnavailable, routingKey, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		c.dropPublishChannel()
		return fmt.Errorf("%w: confirm %s: %w", domain.ErrBrokerUnavailable, messageID, err)
	}
	if !acked {
		return fmt.Errorf("%w: message %s nacked by broker", domain.ErrBrokerUnavailable, messageID)
	}
	return nil
}

// publishChannel must be called with pubMu held.
func (c *Connection) publishChannel() (*amqp.Channel, error) {
	if c.pubCh != nil && !c.pubCh.IsClosed() {
		return c.pubCh, nil
	}

	conn := c.current()
	if conn == nil {
		return nil, domain.ErrBrokerUnavailable
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%w: open channel: %w", domain.ErrBrokerUnavailable, err)
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("%w: confirm mode: %w", domain.ErrBrokerUnavailable, err)
	}

	c.pubCh = ch
	return ch, nil
}

// dropPublishChannel must be called with pubMu held.
func (c *Connection) dropPublishChannel() {
	if c.pubCh != nil {
		c.pubCh.Close()
		c.pubCh = nil
	}
}

func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.pubMu.Lock()
	c.dropPublishChannel()
	c.pubMu.Unlock()

	if conn != nil && !conn.IsClosed() {
		return conn.Close()
	}
	return nil
}
