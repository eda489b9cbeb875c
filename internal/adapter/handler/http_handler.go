package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rl1809/order-saga/internal/core/domain"
	"github.com/rl1809/order-saga/internal/core/service"
)

type HTTPHandler struct {
	orderService *service.OrderService
	logger       *slog.Logger
}

type CreateOrderHTTPRequest struct {
	UserID          string `json:"userId"`
	ShippingAddress string `json:"shippingAddress"`
}

type CreateOrderHTTPResponse struct {
	Message string `json:"message"`
	OrderID int64  `json:"orderId"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(orderService *service.OrderService, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{orderService: orderService, logger: logger}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	r.Post("/orders", h.CreateOrder)
	r.Get("/orders/{orderID}", h.GetOrder)
	return r
}

func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	orderID, err := h.orderService.CreateOrder(r.Context(), req.UserID, req.ShippingAddress)
	if err != nil {
		status := http.StatusInternalServerError
		message := "Failed to create order"

		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			status = http.StatusBadRequest
			message = invalidRequestMessage(err)
		case errors.Is(err, domain.ErrEmptyCart):
			status = http.StatusBadRequest
			message = "Cart is empty"
		case errors.Is(err, domain.ErrUpstreamUnavailable):
			message = "Could not retrieve cart"
		}

		if status == http.StatusInternalServerError {
			h.logger.Error("create order failed",
				"request_id", middleware.GetReqID(r.Context()),
				"user_id", req.UserID,
				"error", err,
			)
		}
		writeJSON(w, status, ErrorResponse{Error: message})
		return
	}

	writeJSON(w, http.StatusCreated, CreateOrderHTTPResponse{
		Message: "Order created successfully!",
		OrderID: orderID,
	})
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid orderId"})
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Order not found"})
			return
		}
		h.logger.Error("get order failed", "order_id", orderID, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to load order"})
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// invalidRequestMessage strips the sentinel prefix so only the field
// complaint reaches the client.
func invalidRequestMessage(err error) string {
	return strings.TrimPrefix(err.Error(), domain.ErrInvalidRequest.Error()+": ")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
