package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/rl1809/order-saga/internal/core/domain"
	"github.com/rl1809/order-saga/internal/core/service"
)

type CartHandler struct {
	cartService *service.CartService
	logger      *slog.Logger
}

type AddCartItemHTTPRequest struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func NewCartHandler(cartService *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{cartService: cartService, logger: logger}
}

func (h *CartHandler) Routes() http.Handler {
	r := mux.NewRouter().UseEncodedPath()
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/cart/{userID}", h.GetCart).Methods(http.MethodGet)
	r.HandleFunc("/cart/{userID}", h.ClearCart).Methods(http.MethodDelete)
	r.HandleFunc("/cart/{userID}/items", h.AddItem).Methods(http.MethodPost)
	return r
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDVar(w, r)
	if !ok {
		return
	}

	cart, err := h.cartService.GetCart(r.Context(), userID)
	if err != nil {
		h.writeError(w, "get cart", err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDVar(w, r)
	if !ok {
		return
	}

	var req AddCartItemHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	cart, err := h.cartService.AddItem(r.Context(), userID, domain.CartItem(req))
	if err != nil {
		h.writeError(w, "add cart item", err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDVar(w, r)
	if !ok {
		return
	}

	if err := h.cartService.ClearCart(r.Context(), userID); err != nil {
		h.writeError(w, "clear cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// userIDVar decodes the path segment; the router matches on the escaped path
// so ids containing "/" stay one segment.
func userIDVar(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := url.PathUnescape(mux.Vars(r)["userID"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid userId"})
		return "", false
	}
	return userID, true
}

func (h *CartHandler) writeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, domain.ErrInvalidRequest) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: invalidRequestMessage(err)})
		return
	}
	h.logger.Error(op+" failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
}
