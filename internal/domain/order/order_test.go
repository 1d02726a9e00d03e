package order

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/customer"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers
func testAddress(t *testing.T, userID uuid.UUID) *customer.Address {
	addr, err := customer.NewAddress(userID, customer.AddressFields{
		FullName:   "Ada Lovelace",
		Street:     "12 St James's Square",
		City:       "London",
		PostalCode: "SW1Y 4JH",
		Country:    "GB",
	}, true)
	require.NoError(t, err)
	return addr
}

func testLine(qty int, price string) PricedLine {
	return PricedLine{
		ProductID:   uuid.New(),
		ProductName: "Notebook",
		Quantity:    qty,
		UnitPrice:   decimal.RequireFromString(price),
	}
}

func createTestOrder(t *testing.T, method PaymentMethod, lines ...PricedLine) *Order {
	userID := uuid.New()
	if len(lines) == 0 {
		lines = []PricedLine{testLine(2, "10.00"), testLine(1, "5.50")}
	}
	o, err := NewOrder(PlaceInput{
		UserID:          userID,
		CustomerEmail:   "ada@example.com",
		CustomerName:    "Ada Lovelace",
		PaymentMethod:   method,
		ShippingAddress: testAddress(t, userID),
		Lines:           lines,
	})
	require.NoError(t, err)
	o.ClearDomainEvents()
	return o
}

// ============================================
// Status Tests
// ============================================

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     Status
		to       Status
		canTrans bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusShipped, false},
		{StatusProcessing, StatusShipped, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusProcessing, StatusPending, false},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusCompleted, true},
		{StatusCompleted, StatusProcessing, false},
		{StatusCancelled, StatusPending, false},
		{StatusFailed, StatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatus_ReleasesStock(t *testing.T) {
	assert.True(t, StatusCancelled.ReleasesStock())
	assert.True(t, StatusFailed.ReleasesStock())
	assert.False(t, StatusShipped.ReleasesStock())
	assert.False(t, StatusProcessing.ReleasesStock())
}

func TestPaymentStatus_IsTerminal(t *testing.T) {
	assert.False(t, PaymentPending.IsTerminal())
	assert.True(t, PaymentPaid.IsTerminal())
	assert.True(t, PaymentFailed.IsTerminal())
}

// ============================================
// NewOrder Tests
// ============================================

func TestNewOrder(t *testing.T) {
	t.Run("totals equal the sum of line subtotals", func(t *testing.T) {
		o := createTestOrder(t, PaymentMethodCard)

		assert.True(t, decimal.RequireFromString("25.50").Equal(o.TotalAmount))
		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, PaymentPending, o.PaymentStatus)
		assert.Equal(t, DefaultCurrency, o.Currency)
		assert.Equal(t, 3, o.ItemCount())
		assert.NoError(t, o.VerifyTotal())
		for _, item := range o.Items {
			assert.Equal(t, o.ID, item.OrderID)
		}
	})

	t.Run("snapshots the shipping address", func(t *testing.T) {
		o := createTestOrder(t, PaymentMethodCash)
		require.NotNil(t, o.ShippingAddressID)
		assert.Equal(t, "London", o.ShippingAddress.City)
	})

	t.Run("publishes OrderPlaced", func(t *testing.T) {
		userID := uuid.New()
		o, err := NewOrder(PlaceInput{
			UserID:          userID,
			PaymentMethod:   PaymentMethodCard,
			ShippingAddress: testAddress(t, userID),
			Lines:           []PricedLine{testLine(1, "3.00")},
		})
		require.NoError(t, err)
		events := o.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeOrderPlaced, events[0].EventType())
	})

	t.Run("rejects anonymous user", func(t *testing.T) {
		_, err := NewOrder(PlaceInput{PaymentMethod: PaymentMethodCard, Lines: []PricedLine{testLine(1, "1")}})
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("rejects empty cart", func(t *testing.T) {
		userID := uuid.New()
		_, err := NewOrder(PlaceInput{UserID: userID, PaymentMethod: PaymentMethodCard, ShippingAddress: testAddress(t, userID)})
		assert.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("rejects missing address", func(t *testing.T) {
		_, err := NewOrder(PlaceInput{UserID: uuid.New(), PaymentMethod: PaymentMethodCard, Lines: []PricedLine{testLine(1, "1")}})
		assert.ErrorIs(t, err, ErrNoAddressSelected)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		userID := uuid.New()
		_, err := NewOrder(PlaceInput{
			UserID:          userID,
			PaymentMethod:   PaymentMethodCard,
			ShippingAddress: testAddress(t, userID),
			Lines:           []PricedLine{testLine(0, "1")},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Quantity must be positive")
	})

	t.Run("rejects unknown payment method", func(t *testing.T) {
		userID := uuid.New()
		_, err := NewOrder(PlaceInput{
			UserID:          userID,
			PaymentMethod:   PaymentMethod("crypto"),
			ShippingAddress: testAddress(t, userID),
			Lines:           []PricedLine{testLine(1, "1")},
		})
		require.Error(t, err)
	})
}

// ============================================
// Payment Tests
// ============================================

func TestOrder_MarkPaid(t *testing.T) {
	t.Run("moves pending order to processing", func(t *testing.T) {
		o := createTestOrder(t, PaymentMethodCard)
		require.NoError(t, o.MarkPaid("pi_123", time.Now()))

		assert.Equal(t, PaymentPaid, o.PaymentStatus)
		assert.Equal(t, StatusProcessing, o.Status)
		assert.Equal(t, "pi_123", o.PaymentIntentID)
		assert.NotNil(t, o.PaidAt)
		require.Len(t, o.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeOrderPaid, o.GetDomainEvents()[0].EventType())
	})

	t.Run("second settlement is rejected", func(t *testing.T) {
		o := createTestOrder(t, PaymentMethodCard)
		require.NoError(t, o.MarkPaid("pi_123", time.Now()))
		err := o.MarkPaid("pi_123", time.Now())
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("failed payment never becomes paid", func(t *testing.T) {
		o := createTestOrder(t, PaymentMethodCard)
		_, err := o.MarkPaymentFailed("pi_1", time.Now())
		require.NoError(t, err)
		assert.Error(t, o.MarkPaid("pi_1", time.Now()))
		assert.Equal(t, PaymentFailed, o.PaymentStatus)
	})

	t.Run("cancelled order refuses a late payment", func(t *testing.T) {
		o := createTestOrder(t, PaymentMethodCard)
		require.NoError(t, o.UpdateStatus(StatusCancelled, "", nil))
		o.ClearDomainEvents()

		err := o.MarkPaid("pi_late", time.Now())
		assert.ErrorIs(t, err, ErrOrderClosed)
		assert.Equal(t, StatusCancelled, o.Status)
		assert.Equal(t, PaymentPending, o.PaymentStatus)
		assert.Empty(t, o.GetDomainEvents())
	})

	t.Run("shipped cash order is paid without a status change", func(t *testing.T) {
		o := createTestOrder(t, PaymentMethodCash)
		require.NoError(t, o.UpdateStatus(StatusProcessing, "", nil))
		require.NoError(t, o.UpdateStatus(StatusShipped, "1Z1", nil))

		require.NoError(t, o.MarkPaid("", time.Now()))
		assert.Equal(t, StatusShipped, o.Status)
		assert.Equal(t, PaymentPaid, o.PaymentStatus)
	})
}

func TestOrder_MarkPaymentFailed(t *testing.T) {
	o := createTestOrder(t, PaymentMethodCard)
	released, err := o.MarkPaymentFailed("pi_9", time.Now())
	require.NoError(t, err)

	assert.True(t, released)
	assert.Equal(t, StatusFailed, o.Status)
	assert.Equal(t, PaymentFailed, o.PaymentStatus)

	_, err = o.MarkPaymentFailed("pi_9", time.Now())
	assert.Error(t, err)
}

// ============================================
// Fulfilment Tests
// ============================================

func TestOrder_UpdateStatus(t *testing.T) {
	t.Run("walks the happy path", func(t *testing.T) {
		o := createTestOrder(t, PaymentMethodCard)
		require.NoError(t, o.MarkPaid("pi_1", time.Now()))

		eta := time.Now().Add(72 * time.Hour)
		require.NoError(t, o.UpdateStatus(StatusShipped, "1Z999", &eta))
		assert.Equal(t, "1Z999", o.TrackingNumber)
		require.NotNil(t, o.EstimatedDelivery)

		require.NoError(t, o.UpdateStatus(StatusDelivered, "", nil))
		require.NoError(t, o.UpdateStatus(StatusCompleted, "", nil))
		assert.True(t, o.Status.IsTerminal())
	})

	t.Run("shipping requires a tracking number", func(t *testing.T) {
		o := createTestOrder(t, PaymentMethodCash)
		require.NoError(t, o.UpdateStatus(StatusProcessing, "", nil))
		err := o.UpdateStatus(StatusShipped, "", nil)
		require.Error(t, err)
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "TRACKING_REQUIRED", de.Code)
	})

	t.Run("rejects invalid transition", func(t *testing.T) {
		o := createTestOrder(t, PaymentMethodCard)
		err := o.UpdateStatus(StatusDelivered, "", nil)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Equal(t, StatusPending, o.Status)
	})

	t.Run("publishes status change", func(t *testing.T) {
		o := createTestOrder(t, PaymentMethodCash)
		require.NoError(t, o.UpdateStatus(StatusCancelled, "", nil))
		events := o.GetDomainEvents()
		require.Len(t, events, 1)
		changed, ok := events[0].(*OrderStatusChangedEvent)
		require.True(t, ok)
		assert.Equal(t, StatusPending, changed.From)
		assert.Equal(t, StatusCancelled, changed.To)
	})
}

func TestOrder_AwaitsCardPayment(t *testing.T) {
	assert.True(t, createTestOrder(t, PaymentMethodCard).AwaitsCardPayment())
	assert.False(t, createTestOrder(t, PaymentMethodCash).AwaitsCardPayment())
}

// ============================================
// Error Tests
// ============================================

func TestErrors(t *testing.T) {
	stockErr := &StockInsufficientError{ProductName: "Notebook", Requested: 3, Available: 1}
	assert.ErrorIs(t, stockErr, shared.ErrInsufficientStock)
	assert.Contains(t, stockErr.Error(), "requested 3, available 1")

	persistErr := NewPersistenceError("insert order items", errors.New("disk full"))
	assert.ErrorIs(t, persistErr, ErrPersistence)
	assert.Equal(t, "PERSISTENCE_FAILURE", persistErr.ErrorCode())

	sessionErr := &PaymentSessionError{OrderID: uuid.New(), Err: errors.New("timeout")}
	assert.ErrorIs(t, sessionErr, ErrPaymentSession)
}
