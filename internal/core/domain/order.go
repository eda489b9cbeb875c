package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PendingPayment"
	OrderStatusPaid           OrderStatus = "Paid"
	OrderStatusFailed         OrderStatus = "Failed"
)

type Order struct {
	ID              int64           `json:"orderId"`
	UserID          string          `json:"userId"`
	Status          OrderStatus     `json:"status"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress string          `json:"shippingAddress"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// OrderItem is one cart line copied into the order. Duplicate product ids are
// kept as separate lines.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// NewPendingOrder builds an order from a cart snapshot. The total is taken
// from the snapshot as is.
func NewPendingOrder(userID, shippingAddress string, cart CartSnapshot, now time.Time) Order {
	items := make([]OrderItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, OrderItem(it))
	}

	return Order{
		UserID:          userID,
		Status:          OrderStatusPendingPayment,
		TotalAmount:     cart.TotalAmount,
		ShippingAddress: shippingAddress,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
