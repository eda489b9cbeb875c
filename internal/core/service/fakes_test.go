package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/order-saga/internal/core/domain"
	"github.com/rl1809/order-saga/internal/port"
)

var testLogger = slog.New(slog.DiscardHandler)

type fakeCartClient struct {
	mu    sync.Mutex
	cart  domain.CartSnapshot
	err   error
	calls int
}

func (f *fakeCartClient) GetCart(ctx context.Context, userID string) (domain.CartSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.cart, f.err
}

// fakeOrderRepo keeps orders and outbox messages in memory.
type fakeOrderRepo struct {
	mu        sync.Mutex
	nextID    int64
	orders    map[int64]domain.Order
	outbox    []domain.OutboxMessage
	createErr error
	markErr   error
	markCalls int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[int64]domain.Order)}
}

func (f *fakeOrderRepo) CreateOrder(ctx context.Context, order *domain.Order, announce port.Announce) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}

	id := f.nextID + 1
	order.ID = id
	msg, err := announce(*order)
	if err != nil {
		order.ID = 0
		return err
	}

	f.nextID = id
	f.orders[id] = *order
	msg.ID = int64(len(f.outbox) + 1)
	f.outbox = append(f.outbox, msg)
	return nil
}

func (f *fakeOrderRepo) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &o, nil
}

func (f *fakeOrderRepo) MarkOrderPaid(ctx context.Context, orderID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.markCalls++
	if f.markErr != nil {
		return false, f.markErr
	}
	o, ok := f.orders[orderID]
	if !ok {
		return false, nil
	}
	o.Status = domain.OrderStatusPaid
	f.orders[orderID] = o
	return true, nil
}

func (f *fakeOrderRepo) DrainOutbox(ctx context.Context, limit int, publish func(context.Context, domain.OutboxMessage) error) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	sent := 0
	for i := range f.outbox {
		if sent == limit {
			break
		}
		if f.outbox[i].SentAt != nil {
			continue
		}
		if err := publish(ctx, f.outbox[i]); err != nil {
			return sent, err
		}
		now := f.outbox[i].CreatedAt
		f.outbox[i].SentAt = &now
		sent++
	}
	return sent, nil
}

func (f *fakeOrderRepo) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, m := range f.outbox {
		if m.SentAt == nil {
			n++
		}
	}
	return n
}

type published struct {
	routingKey string
	messageID  string
	body       []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
	// failAfter makes every publish after the first n fail with err.
	failAfter int
}

func (f *fakePublisher) Publish(ctx context.Context, routingKey, messageID string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil && len(f.messages) >= f.failAfter {
		return f.err
	}
	f.messages = append(f.messages, published{routingKey: routingKey, messageID: messageID, body: body})
	return nil
}

func (f *fakePublisher) sent() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.messages...)
}

type fakePaymentRepo struct {
	mu         sync.Mutex
	nextID     int64
	byOrder    map[int64]*domain.Payment
	createErr  error
	successErr error
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byOrder: make(map[int64]*domain.Payment)}
}

func (f *fakePaymentRepo) CreateProcessing(ctx context.Context, orderID int64, amount decimal.Decimal) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}
	if existing, ok := f.byOrder[orderID]; ok {
		p := *existing
		return &p, domain.ErrDuplicatePayment
	}

	f.nextID++
	p := &domain.Payment{
		ID:      f.nextID,
		OrderID: orderID,
		Amount:  amount,
		Status:  domain.PaymentStatusProcessing,
	}
	f.byOrder[orderID] = p
	out := *p
	return &out, nil
}

func (f *fakePaymentRepo) find(paymentID int64) *domain.Payment {
	for _, p := range f.byOrder {
		if p.ID == paymentID {
			return p
		}
	}
	return nil
}

func (f *fakePaymentRepo) MarkSuccessful(ctx context.Context, paymentID int64, receipt domain.GatewayReceipt) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.successErr != nil {
		return f.successErr
	}
	p := f.find(paymentID)
	if p == nil {
		return errors.New("payment not found")
	}
	p.Status = domain.PaymentStatusSuccessful
	p.TransactionID = receipt.TransactionID
	p.PaymentSystem = receipt.PaymentSystem
	return nil
}

func (f *fakePaymentRepo) MarkFailed(ctx context.Context, paymentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := f.find(paymentID)
	if p == nil {
		return errors.New("payment not found")
	}
	p.Status = domain.PaymentStatusFailed
	return nil
}

func (f *fakePaymentRepo) GetPaymentByOrder(ctx context.Context, orderID int64) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.byOrder[orderID]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (f *fakePaymentRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byOrder)
}

type fakeGateway struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeGateway) Charge(ctx context.Context, orderID int64, amount decimal.Decimal) (domain.GatewayReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return domain.GatewayReceipt{}, f.err
	}
	return domain.GatewayReceipt{TransactionID: "txn_test", PaymentSystem: "MockGateway"}, nil
}
