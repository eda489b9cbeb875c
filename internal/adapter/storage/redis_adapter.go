package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/order-saga/internal/core/domain"
)

const (
	cartKeyPrefix  = "cart:"
	maxCartRetries = 10
)

var ErrCartContention = errors.New("cart update contention")

// RedisAdapter is the cart store. Each cart is one JSON value under cart:{userId}.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) GetCart(ctx context.Context, userID string) (domain.CartSnapshot, error) {
	return readCart(ctx, r.client, cartKeyPrefix+userID)
}

// AddItem appends the line under WATCH so concurrent adds to the same cart
// are never lost.
func (r *RedisAdapter) AddItem(ctx context.Context, userID string, item domain.CartItem) (domain.CartSnapshot, error) {
	key := cartKeyPrefix + userID

	var cart domain.CartSnapshot
	txf := func(tx *redis.Tx) error {
		current, err := readCart(ctx, tx, key)
		if err != nil {
			return err
		}
		current.Add(item)

		raw, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("marshal cart: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			return nil
		})
		if err != nil {
			return err
		}
		cart = current
		return nil
	}

	for i := 0; i < maxCartRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return cart, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return domain.CartSnapshot{}, err
	}

	return domain.CartSnapshot{}, ErrCartContention
}

func (r *RedisAdapter) ClearCart(ctx context.Context, userID string) error {
	return r.client.Del(ctx, cartKeyPrefix+userID).Err()
}

func readCart(ctx context.Context, c redis.Cmdable, key string) (domain.CartSnapshot, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CartSnapshot{Items: []domain.CartItem{}, TotalAmount: decimal.Zero}, nil
	}
	if err != nil {
		return domain.CartSnapshot{}, err
	}

	var cart domain.CartSnapshot
	if err := json.Unmarshal(raw, &cart); err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("decode cart %s: %w", key, err)
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return cart, nil
}
