package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places the order and payment stores keep.
const MoneyScale = 2

// ValidAmount reports whether d is non-negative and stored without rounding.
func ValidAmount(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Round(MoneyScale))
}

// CartSnapshot is the read-only view of a user's cart returned by the cart
// service.
type CartSnapshot struct {
	Items       []CartItem      `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

type CartItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func (c CartSnapshot) IsEmpty() bool {
	return len(c.Items) == 0
}

// Add appends a line and recomputes the total from all lines.
func (c *CartSnapshot) Add(item CartItem) {
	c.Items = append(c.Items, item)

	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	c.TotalAmount = total
}

// Validate rejects snapshots that cannot become an order as is.
func (c CartSnapshot) Validate() error {
	for i, it := range c.Items {
		if it.ProductID == "" {
			return fmt.Errorf("item %d: productId is required", i)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("item %d: quantity %d must be positive", i, it.Quantity)
		}
		if !ValidAmount(it.Price) {
			return fmt.Errorf("item %d: invalid price %s", i, it.Price)
		}
	}
	if !ValidAmount(c.TotalAmount) {
		return errors.New("invalid totalAmount " + c.TotalAmount.String())
	}
	return nil
}
