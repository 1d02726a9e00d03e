package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// ListFilter narrows admin and customer order listings
type ListFilter struct {
	shared.Filter
	UserID        *uuid.UUID
	Status        *Status
	PaymentStatus *PaymentStatus
}

// Repository reads orders. Every returned order has its items loaded.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByIDForUser(ctx context.Context, userID, id uuid.UUID) (*Order, error)
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*Order, error)
	// ListByUser returns the user's orders, newest first
	ListByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]Order, error)
	// ListRecent returns the newest orders across all users
	ListRecent(ctx context.Context, limit int) ([]Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	SumRevenue(ctx context.Context) (decimal.Decimal, error)
}

// PlacementStore persists a new order in one transaction: the order row,
// every item row and a conditional stock decrement per item. Either all of
// it commits or none of it does. A line whose stock cannot cover it fails
// with *StockInsufficientError; a backend failure with *PersistenceError.
type PlacementStore interface {
	PlaceAtomically(ctx context.Context, o *Order) error
}

// PaymentStore applies payment outcomes with conditional writes that only
// match a pending payment. The boolean reports whether this call made the
// change, so redelivered notifications become no-ops.
type PaymentStore interface {
	MarkPaidIfPending(ctx context.Context, orderID uuid.UUID, paymentRef string) (bool, error)
	MarkFailedIfPending(ctx context.Context, orderID uuid.UUID, paymentRef string) (bool, error)
	SetPaymentSession(ctx context.Context, orderID uuid.UUID, sessionID string) error
}

// StatusStore persists a fulfilment transition made by UpdateStatus. The
// write only applies while the stored status still equals from; entering a
// stock-releasing status returns the items' units in the same transaction.
type StatusStore interface {
	UpdateStatus(ctx context.Context, o *Order, from Status) error
}
