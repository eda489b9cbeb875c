// Package gateway simulates the external card processor.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/order-saga/internal/core/domain"
)

const PaymentSystem = "MockGateway"

var ErrGatewayTimeout = errors.New("payment gateway timed out")

type SimulatedGateway struct {
	latency time.Duration
	timeout time.Duration
}

// NewSimulatedGateway answers every charge after latency. A positive timeout
// shorter than latency makes every charge fail with ErrGatewayTimeout.
func NewSimulatedGateway(latency, timeout time.Duration) *SimulatedGateway {
	return &SimulatedGateway{latency: latency, timeout: timeout}
}

func (g *SimulatedGateway) Charge(ctx context.Context, orderID int64, amount decimal.Decimal) (domain.GatewayReceipt, error) {
	if amount.IsNegative() {
		return domain.GatewayReceipt{}, fmt.Errorf("charge order %d: negative amount %s", orderID, amount)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, g.timeout, ErrGatewayTimeout)
		defer cancel()
	}

	select {
	case <-time.After(g.latency):
	case <-ctx.Done():
		return domain.GatewayReceipt{}, fmt.Errorf("charge order %d: %w", orderID, context.Cause(ctx))
	}

	return domain.GatewayReceipt{
		TransactionID: "txn_" + uuid.NewString(),
		PaymentSystem: PaymentSystem,
	}, nil
}
