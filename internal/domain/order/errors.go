package order

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Order placement errors
var (
	ErrUnauthenticated   = shared.NewDomainError("UNAUTHORIZED", "Sign in to place an order")
	ErrEmptyCart         = shared.NewDomainError("EMPTY_CART", "Cart is empty")
	ErrNoAddressSelected = shared.NewDomainError("NO_ADDRESS_SELECTED", "Select a shipping address")
	ErrPersistence       = shared.NewDomainError("PERSISTENCE_FAILURE", "Order could not be saved, please try again")
	ErrPaymentSession    = shared.NewDomainError("PAYMENT_UNAVAILABLE", "Payment could not be started, please try again")
	ErrTotalMismatch     = shared.NewDomainError("TOTAL_MISMATCH", "Order total does not match its items")
	ErrOrderClosed       = shared.NewDomainError("ORDER_CLOSED", "Order was cancelled and can no longer be paid")
)

// StockInsufficientError reports the first line that could not be reserved
type StockInsufficientError struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Available   int
}

func (e *StockInsufficientError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// Is lets errors.Is match shared.ErrInsufficientStock
func (e *StockInsufficientError) Is(target error) bool {
	return target == error(shared.ErrInsufficientStock)
}

// ErrorCode returns the API error code
func (e *StockInsufficientError) ErrorCode() string {
	return shared.ErrInsufficientStock.Code
}

// PersistenceError wraps a backend failure during a multi-step write
type PersistenceError struct {
	Op  string
	Err error
}

// NewPersistenceError wraps err as a persistence failure of op
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrPersistence
func (e *PersistenceError) Is(target error) bool {
	return target == error(ErrPersistence)
}

// ErrorCode returns the API error code
func (e *PersistenceError) ErrorCode() string {
	return ErrPersistence.Code
}

// PaymentSessionError reports that the order was stored but the payment
// provider could not open a session for it
type PaymentSessionError struct {
	OrderID uuid.UUID
	Err     error
}

func (e *PaymentSessionError) Error() string {
	return fmt.Sprintf("payment session for order %s: %v", e.OrderID, e.Err)
}

func (e *PaymentSessionError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrPaymentSession
func (e *PaymentSessionError) Is(target error) bool {
	return target == error(ErrPaymentSession)
}

// ErrorCode returns the API error code
func (e *PaymentSessionError) ErrorCode() string {
	return ErrPaymentSession.Code
}
