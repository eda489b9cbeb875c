package handler

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/order-saga/internal/adapter/handler/orderrpc"
	"github.com/rl1809/order-saga/internal/core/domain"
	"github.com/rl1809/order-saga/internal/core/service"
)

type GRPCHandler struct {
	orderService *service.OrderService
	logger       *slog.Logger
}

func NewGRPCHandler(orderService *service.OrderService, logger *slog.Logger) *GRPCHandler {
	return &GRPCHandler{orderService: orderService, logger: logger}
}

func (h *GRPCHandler) CreateOrder(ctx context.Context, req *orderrpc.CreateOrderRequest) (*orderrpc.CreateOrderResponse, error) {
	orderID, err := h.orderService.CreateOrder(ctx, req.UserID, req.ShippingAddress)
	if err != nil {
		return nil, h.toStatus("CreateOrder", err)
	}
	return &orderrpc.CreateOrderResponse{OrderID: orderID}, nil
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *orderrpc.GetOrderRequest) (*domain.Order, error) {
	order, err := h.orderService.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, h.toStatus("GetOrder", err)
	}
	return order, nil
}

func (h *GRPCHandler) toStatus(method string, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, invalidRequestMessage(err))
	case errors.Is(err, domain.ErrEmptyCart):
		return status.Error(codes.InvalidArgument, "Cart is empty")
	case errors.Is(err, domain.ErrOrderNotFound):
		return status.Error(codes.NotFound, "Order not found")
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return status.Error(codes.Unavailable, "Could not retrieve cart")
	}

	h.logger.Error("grpc call failed", "method", method, "error", err)
	return status.Error(codes.Internal, "internal error")
}
