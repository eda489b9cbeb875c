package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rl1809/order-saga/internal/core/domain"
)

type PaymentRepository interface {
	// CreateProcessing inserts a Processing payment for the order. If the order
	// already has one it returns that payment with domain.ErrDuplicatePayment.
	CreateProcessing(ctx context.Context, orderID int64, amount decimal.Decimal) (*domain.Payment, error)

	MarkSuccessful(ctx context.Context, paymentID int64, receipt domain.GatewayReceipt) error

	MarkFailed(ctx context.Context, paymentID int64) error

	GetPaymentByOrder(ctx context.Context, orderID int64) (*domain.Payment, error)
}

// PaymentGateway charges an order. Implementations may block for the
// duration of an external call.
type PaymentGateway interface {
	Charge(ctx context.Context, orderID int64, amount decimal.Decimal) (domain.GatewayReceipt, error)
}
