package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoutingKeyOrderCreated      = "order.created"
	RoutingKeyPaymentSuccessful = "payment.successful"
)

// OrderCreated announces a committed order. Consumers need orderId and
// totalAmount; the other fields are informational.
type OrderCreated struct {
	OrderID     int64
	UserID      string
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
}

type orderCreatedWire struct {
	OrderID     int64       `json:"orderId"`
	UserID      string      `json:"userId"`
	TotalAmount json.Number `json:"totalAmount"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type orderCreatedIn struct {
	OrderID     *int64           `json:"orderId"`
	UserID      string           `json:"userId"`
	TotalAmount *decimal.Decimal `json:"totalAmount"`
	CreatedAt   time.Time        `json:"createdAt"`
}

func OrderCreatedFrom(o Order) OrderCreated {
	return OrderCreated{
		OrderID:     o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt,
	}
}

func (e OrderCreated) Marshal() ([]byte, error) {
	return json.Marshal(orderCreatedWire{
		OrderID:     e.OrderID,
		UserID:      e.UserID,
		TotalAmount: json.Number(e.TotalAmount.String()),
		CreatedAt:   e.CreatedAt,
	})
}

// DecodeOrderCreated parses an order.created body. Unknown fields are
// ignored; a missing orderId or totalAmount yields ErrMalformedEvent.
func DecodeOrderCreated(body []byte) (OrderCreated, error) {
	var in orderCreatedIn
	if err := json.Unmarshal(body, &in); err != nil {
		return OrderCreated{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if in.OrderID == nil || *in.OrderID <= 0 {
		return OrderCreated{}, fmt.Errorf("%w: missing orderId", ErrMalformedEvent)
	}
	if in.TotalAmount == nil || in.TotalAmount.IsNegative() {
		return OrderCreated{}, fmt.Errorf("%w: missing or negative totalAmount", ErrMalformedEvent)
	}

	return OrderCreated{
		OrderID:     *in.OrderID,
		UserID:      in.UserID,
		TotalAmount: *in.TotalAmount,
		CreatedAt:   in.CreatedAt,
	}, nil
}

type PaymentSuccessful struct {
	OrderID       int64  `json:"orderId"`
	PaymentID     int64  `json:"paymentId"`
	TransactionID string `json:"transactionId"`
}

func (e PaymentSuccessful) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// DecodePaymentSuccessful parses a payment.successful body. Only orderId is
// required by the order side.
func DecodePaymentSuccessful(body []byte) (PaymentSuccessful, error) {
	var in struct {
		OrderID       *int64 `json:"orderId"`
		PaymentID     int64  `json:"paymentId"`
		TransactionID string `json:"transactionId"`
	}
	if err := json.Unmarshal(body, &in); err != nil {
		return PaymentSuccessful{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if in.OrderID == nil || *in.OrderID <= 0 {
		return PaymentSuccessful{}, fmt.Errorf("%w: missing orderId", ErrMalformedEvent)
	}

	return PaymentSuccessful{
		OrderID:       *in.OrderID,
		PaymentID:     in.PaymentID,
		TransactionID: in.TransactionID,
	}, nil
}

// OutboxMessage is an event persisted alongside the state change that caused
// it, waiting to be relayed to the broker.
type OutboxMessage struct {
	ID          int64
	AggregateID int64
	RoutingKey  string
	Payload     []byte
	CreatedAt   time.Time
	SentAt      *time.Time
}

// MessageID is the broker-level id, stable across relay retries.
func (m OutboxMessage) MessageID() string {
	return fmt.Sprintf("outbox-%d", m.ID)
}
