package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusProcessing PaymentStatus = "Processing"
	PaymentStatusSuccessful PaymentStatus = "Successful"
	PaymentStatusFailed     PaymentStatus = "Failed"
)

type Payment struct {
	ID            int64
	OrderID       int64
	Amount        decimal.Decimal
	Status        PaymentStatus
	TransactionID string // empty until Successful
	PaymentSystem string // empty until Successful
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GatewayReceipt is what the payment gateway returns for a captured charge.
type GatewayReceipt struct {
	TransactionID string
	PaymentSystem string
}
