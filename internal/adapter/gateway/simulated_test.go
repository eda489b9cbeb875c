package gateway

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharge_IssuesReceipt(t *testing.T) {
	g := NewSimulatedGateway(time.Millisecond, 0)

	receipt, err := g.Charge(context.Background(), 1, decimal.NewFromInt(20))
	require.NoError(t, err)

	assert.Equal(t, PaymentSystem, receipt.PaymentSystem)
	require.True(t, strings.HasPrefix(receipt.TransactionID, "txn_"))
	_, err = uuid.Parse(strings.TrimPrefix(receipt.TransactionID, "txn_"))
	assert.NoError(t, err)
}

func TestCharge_UniqueTransactionIDs(t *testing.T) {
	g := NewSimulatedGateway(0, 0)

	a, err := g.Charge(context.Background(), 1, decimal.NewFromInt(5))
	require.NoError(t, err)
	b, err := g.Charge(context.Background(), 1, decimal.NewFromInt(5))
	require.NoError(t, err)

	assert.NotEqual(t, a.TransactionID, b.TransactionID)
}

func TestCharge_Timeout(t *testing.T) {
	g := NewSimulatedGateway(time.Second, 10*time.Millisecond)

	start := time.Now()
	_, err := g.Charge(context.Background(), 7, decimal.NewFromInt(5))
	assert.ErrorIs(t, err, ErrGatewayTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestCharge_CallerCancelled(t *testing.T) {
	g := NewSimulatedGateway(time.Second, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Charge(ctx, 7, decimal.NewFromInt(5))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCharge_RejectsNegativeAmount(t *testing.T) {
	g := NewSimulatedGateway(0, 0)

	_, err := g.Charge(context.Background(), 7, decimal.NewFromInt(-1))
	assert.Error(t, err)
}
