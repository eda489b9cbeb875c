package domain

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrPersistence         = errors.New("persistence error")
	ErrMalformedEvent      = errors.New("malformed event")
	ErrBrokerUnavailable   = errors.New("broker unavailable")
	ErrOrderNotFound       = errors.New("order not found")
	ErrDuplicatePayment    = errors.New("payment already exists for order")
)
