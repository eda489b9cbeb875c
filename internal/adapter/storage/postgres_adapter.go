package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rl1809/order-saga/internal/core/domain"
)

// PostgresAdapter is the payment store.
type PostgresAdapter struct {
	pool *pgxpool.Pool
}

func NewPostgresAdapter(pool *pgxpool.Pool) *PostgresAdapter {
	return &PostgresAdapter{pool: pool}
}

// EnsureSchema creates the payments table if it does not exist.
func (p *PostgresAdapter) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS payments (
  payment_id BIGSERIAL PRIMARY KEY,
  order_id BIGINT NOT NULL UNIQUE,
  amount NUMERIC(14,2) NOT NULL,
  status TEXT NOT NULL,
  transaction_id TEXT,
  payment_system TEXT,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const selectPayment = `
SELECT payment_id, order_id, amount::text, status,
       COALESCE(transaction_id, ''), COALESCE(payment_system, ''),
       created_at, updated_at
FROM payments`

func (p *PostgresAdapter) CreateProcessing(ctx context.Context, orderID int64, amount decimal.Decimal) (*domain.Payment, error) {
	row := p.pool.QueryRow(ctx, `
INSERT INTO payments (order_id, amount, status)
VALUES ($1, $2::text::numeric, $3)
ON CONFLICT (order_id) DO NOTHING
RETURNING payment_id, order_id, amount::text, status, ''::text, ''::text, created_at, updated_at`,
		orderID, amount.String(), string(domain.PaymentStatusProcessing),
	)

	payment, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := p.GetPaymentByOrder(ctx, orderID)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, fmt.Errorf("insert payment for order %d: conflicting row vanished", orderID)
		}
		return existing, domain.ErrDuplicatePayment
	}
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	return payment, nil
}

func (p *PostgresAdapter) MarkSuccessful(ctx context.Context, paymentID int64, receipt domain.GatewayReceipt) error {
	tag, err := p.pool.Exec(ctx, `
UPDATE payments
SET status = $1, transaction_id = $2, payment_system = $3, updated_at = NOW()
WHERE payment_id = $4`,
		string(domain.PaymentStatusSuccessful), receipt.TransactionID, receipt.PaymentSystem, paymentID,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update payment %d: no such payment", paymentID)
	}
	return nil
}

func (p *PostgresAdapter) MarkFailed(ctx context.Context, paymentID int64) error {
	_, err := p.pool.Exec(ctx, `
UPDATE payments SET status = $1, updated_at = NOW()
WHERE payment_id = $2 AND status = $3`,
		string(domain.PaymentStatusFailed), paymentID, string(domain.PaymentStatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) GetPaymentByOrder(ctx context.Context, orderID int64) (*domain.Payment, error) {
	payment, err := scanPayment(p.pool.QueryRow(ctx, selectPayment+` WHERE order_id = $1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query payment: %w", err)
	}
	return payment, nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		payment domain.Payment
		amount  string
		status  string
	)
	err := row.Scan(
		&payment.ID, &payment.OrderID, &amount, &status,
		&payment.TransactionID, &payment.PaymentSystem,
		&payment.CreatedAt, &payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	payment.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	payment.Status = domain.PaymentStatus(status)
	return &payment, nil
}
