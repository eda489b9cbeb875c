package handler

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rl1809/order-saga/internal/adapter/handler/orderrpc"
	"github.com/rl1809/order-saga/internal/core/domain"
	"github.com/rl1809/order-saga/internal/port"
)

func startOrderRPC(t *testing.T, carts port.CartClient, orders port.OrderRepository) *orderrpc.OrderServiceClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	orderrpc.RegisterOrderServiceServer(srv, NewGRPCHandler(newTestOrderService(carts, orders), testLogger))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return orderrpc.NewOrderServiceClient(conn)
}

func TestGRPC_CreateAndGetOrder(t *testing.T) {
	client := startOrderRPC(t, stubCartClient{cart: bakerStreetCart()}, newMemOrderRepo())
	ctx := context.Background()

	created, err := client.CreateOrder(ctx, &orderrpc.CreateOrderRequest{UserID: "u1", ShippingAddress: "221B Baker St"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.OrderID)

	order, err := client.GetOrder(ctx, &orderrpc.GetOrderRequest{OrderID: created.OrderID})
	require.NoError(t, err)
	assert.Equal(t, "u1", order.UserID)
	assert.Equal(t, "221B Baker St", order.ShippingAddress)
	assert.Equal(t, domain.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, "20", order.TotalAmount.String())
}

func TestGRPC_StatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		carts    stubCartClient
		call     func(context.Context, *orderrpc.OrderServiceClient) error
		wantCode codes.Code
	}{
		{
			name:  "missing user",
			carts: stubCartClient{cart: bakerStreetCart()},
			call: func(ctx context.Context, c *orderrpc.OrderServiceClient) error {
				_, err := c.CreateOrder(ctx, &orderrpc.CreateOrderRequest{})
				return err
			},
			wantCode: codes.InvalidArgument,
		},
		{
			name:  "empty cart",
			carts: stubCartClient{},
			call: func(ctx context.Context, c *orderrpc.OrderServiceClient) error {
				_, err := c.CreateOrder(ctx, &orderrpc.CreateOrderRequest{UserID: "u1"})
				return err
			},
			wantCode: codes.InvalidArgument,
		},
		{
			name:  "cart unavailable",
			carts: stubCartClient{err: errStoreDown},
			call: func(ctx context.Context, c *orderrpc.OrderServiceClient) error {
				_, err := c.CreateOrder(ctx, &orderrpc.CreateOrderRequest{UserID: "u1"})
				return err
			},
			wantCode: codes.Unavailable,
		},
		{
			name: "unknown order",
			call: func(ctx context.Context, c *orderrpc.OrderServiceClient) error {
				_, err := c.GetOrder(ctx, &orderrpc.GetOrderRequest{OrderID: 99})
				return err
			},
			wantCode: codes.NotFound,
		},
		{
			name: "invalid order id",
			call: func(ctx context.Context, c *orderrpc.OrderServiceClient) error {
				_, err := c.GetOrder(ctx, &orderrpc.GetOrderRequest{OrderID: -1})
				return err
			},
			wantCode: codes.InvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := startOrderRPC(t, tt.carts, newMemOrderRepo())

			err := tt.call(context.Background(), client)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, status.Code(err))
		})
	}
}

func TestGRPC_StoreFailureIsInternal(t *testing.T) {
	orders := newMemOrderRepo()
	orders.createErr = errStoreDown
	client := startOrderRPC(t, stubCartClient{cart: bakerStreetCart()}, orders)

	_, err := client.CreateOrder(context.Background(), &orderrpc.CreateOrderRequest{UserID: "u1"})
	assert.Equal(t, codes.Internal, status.Code(err))
}
