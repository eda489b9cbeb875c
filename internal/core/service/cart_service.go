package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rl1809/order-saga/internal/core/domain"
	"github.com/rl1809/order-saga/internal/port"
)

type CartService struct {
	carts port.CartRepository
}

func NewCartService(carts port.CartRepository) *CartService {
	return &CartService{carts: carts}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (domain.CartSnapshot, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.CartSnapshot{}, fmt.Errorf("%w: userId is required", domain.ErrInvalidRequest)
	}
	return s.carts.GetCart(ctx, userID)
}

func (s *CartService) AddItem(ctx context.Context, userID string, item domain.CartItem) (domain.CartSnapshot, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.CartSnapshot{}, fmt.Errorf("%w: userId is required", domain.ErrInvalidRequest)
	}
	if item.ProductID == "" || item.Quantity <= 0 || !item.Price.IsPositive() {
		return domain.CartSnapshot{}, fmt.Errorf("%w: productId, quantity, and price are required", domain.ErrInvalidRequest)
	}
	if !domain.ValidAmount(item.Price) {
		return domain.CartSnapshot{}, fmt.Errorf("%w: price must have at most %d decimal places", domain.ErrInvalidRequest, domain.MoneyScale)
	}
	return s.carts.AddItem(ctx, userID, item)
}

func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: userId is required", domain.ErrInvalidRequest)
	}
	return s.carts.ClearCart(ctx, userID)
}
