package port

import (
	"context"

	"github.com/rl1809/order-saga/internal/core/domain"
)

// CartClient fetches a cart snapshot from the cart service.
type CartClient interface {
	GetCart(ctx context.Context, userID string) (domain.CartSnapshot, error)
}

type CartRepository interface {
	// GetCart returns an empty snapshot when the user has no cart.
	GetCart(ctx context.Context, userID string) (domain.CartSnapshot, error)

	// AddItem appends a line atomically and returns the updated cart.
	AddItem(ctx context.Context, userID string, item domain.CartItem) (domain.CartSnapshot, error)

	ClearCart(ctx context.Context, userID string) error
}
