package services

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services. Handlers map these onto HTTP
// status codes; tests match them with errors.Is.
var (
	ErrUserExists         = errors.New("user with this username or email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProductNotFound    = errors.New("product not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrForbidden          = errors.New("access denied")
	ErrEmptyMessage       = errors.New("message content cannot be empty")
	ErrReviewNotAllowed   = errors.New("review requires a paid purchase of this product")
	ErrAlreadyReviewed    = errors.New("product already reviewed by this user")
)

// GatewayError indicates the payment provider rejected or failed a request.
// Orders are never persisted when charge creation fails.
type GatewayError struct {
	Reason string
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment gateway: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("payment gateway: %s", e.Reason)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
