package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/customer"
	"github.com/storefront/backend/internal/domain/shared"
)

// DefaultCurrency is used when placement does not name one
const DefaultCurrency = "usd"

// Order is the aggregate root for a placed purchase.
// TotalAmount always equals the sum of item subtotals.
type Order struct {
	shared.BaseAggregateRoot
	UserID            uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	CustomerEmail     string            `gorm:"type:varchar(320)" json:"customer_email"`
	CustomerName      string            `gorm:"type:varchar(200)" json:"customer_name"`
	Status            Status            `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentStatus     PaymentStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`
	PaymentMethod     PaymentMethod     `gorm:"type:varchar(20);not null" json:"payment_method"`
	TotalAmount       decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Currency          string            `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	ShippingAddressID *uuid.UUID        `gorm:"type:uuid" json:"shipping_address_id,omitempty"`
	ShippingAddress   customer.Snapshot `gorm:"type:jsonb;serializer:json" json:"shipping_address"`
	PaymentSessionID  string            `gorm:"type:varchar(255)" json:"payment_session_id,omitempty"`
	PaymentIntentID   string            `gorm:"type:varchar(255);index" json:"payment_intent_id,omitempty"`
	TrackingNumber    string            `gorm:"type:varchar(100)" json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time        `json:"estimated_delivery,omitempty"`
	PaidAt            *time.Time        `json:"paid_at,omitempty"`
	Items             []Item            `gorm:"foreignKey:OrderID;references:ID" json:"items"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// PlaceInput carries everything needed to create an order
type PlaceInput struct {
	UserID          uuid.UUID
	CustomerEmail   string
	CustomerName    string
	PaymentMethod   PaymentMethod
	Currency        string
	ShippingAddress *customer.Address
	Lines           []PricedLine
}

// NewOrder creates a pending order from re-priced lines
func NewOrder(in PlaceInput) (*Order, error) {
	if in.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if len(in.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	if in.ShippingAddress == nil {
		return nil, ErrNoAddressSelected
	}
	if !in.PaymentMethod.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method must be card or cash")
	}
	currency := in.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            in.UserID,
		CustomerEmail:     in.CustomerEmail,
		CustomerName:      in.CustomerName,
		Status:            StatusPending,
		PaymentStatus:     PaymentPending,
		PaymentMethod:     in.PaymentMethod,
		Currency:          currency,
		ShippingAddress:   in.ShippingAddress.Snapshot(),
		Items:             make([]Item, 0, len(in.Lines)),
	}
	addressID := in.ShippingAddress.ID
	o.ShippingAddressID = &addressID

	for _, line := range in.Lines {
		item, err := newItem(o.ID, line, o.CreatedAt)
		if err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	o.recalculateTotal()

	o.AddDomainEvent(NewOrderPlacedEvent(o))
	return o, nil
}

// recalculateTotal recomputes the total from the items
func (o *Order) recalculateTotal() {
	o.TotalAmount = SumItems(o.Items)
}

// SumItems returns the sum of item subtotals
func SumItems(items []Item) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].Subtotal())
	}
	return total
}

// VerifyTotal checks the stored total against the items
func (o *Order) VerifyTotal() error {
	if !o.TotalAmount.Equal(SumItems(o.Items)) {
		return ErrTotalMismatch
	}
	return nil
}

// ItemCount returns the number of units across all items
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// MarkPaid settles the payment. A pending order moves on to processing;
// any other open fulfilment status is left alone. A cancelled or failed
// order has already given its stock back and returns ErrOrderClosed.
func (o *Order) MarkPaid(paymentRef string, at time.Time) error {
	if o.PaymentStatus.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Payment is already "+string(o.PaymentStatus))
	}
	if o.Status.ReleasesStock() {
		return ErrOrderClosed
	}
	o.PaymentStatus = PaymentPaid
	if o.Status == StatusPending {
		o.Status = StatusProcessing
	}
	if paymentRef != "" {
		o.PaymentIntentID = paymentRef
	}
	paidAt := at.UTC()
	o.PaidAt = &paidAt
	o.UpdatedAt = paidAt
	o.IncrementVersion()

	o.AddDomainEvent(NewOrderPaidEvent(o))
	return nil
}

// MarkPaymentFailed records a failed payment. Returns true when the order
// itself moved to failed and its reserved stock must be released.
func (o *Order) MarkPaymentFailed(paymentRef string, at time.Time) (bool, error) {
	if o.PaymentStatus.IsTerminal() {
		return false, shared.NewDomainError("INVALID_STATE", "Payment is already "+string(o.PaymentStatus))
	}
	o.PaymentStatus = PaymentFailed
	released := false
	if o.Status == StatusPending {
		o.Status = StatusFailed
		released = true
	}
	if paymentRef != "" {
		o.PaymentIntentID = paymentRef
	}
	o.UpdatedAt = at.UTC()
	o.IncrementVersion()

	o.AddDomainEvent(NewOrderPaymentFailedEvent(o))
	return released, nil
}

// UpdateStatus moves the order along its fulfilment lifecycle
func (o *Order) UpdateStatus(next Status, trackingNumber string, estimatedDelivery *time.Time) error {
	if !next.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown order status: "+string(next))
	}
	if !o.Status.CanTransitionTo(next) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot change order status from "+string(o.Status)+" to "+string(next))
	}
	if next == StatusShipped && trackingNumber == "" && o.TrackingNumber == "" {
		return shared.NewDomainError("TRACKING_REQUIRED", "Tracking number is required to ship an order")
	}

	from := o.Status
	o.Status = next
	if trackingNumber != "" {
		o.TrackingNumber = trackingNumber
	}
	if estimatedDelivery != nil {
		eta := estimatedDelivery.UTC()
		o.EstimatedDelivery = &eta
	}
	o.Touch()
	o.IncrementVersion()

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from))
	return nil
}

// BelongsTo reports whether the order was placed by userID
func (o *Order) BelongsTo(userID uuid.UUID) bool {
	return o.UserID == userID
}

// IsPaid returns true if payment settled successfully
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentPaid
}

// AwaitsCardPayment reports whether a checkout session may still be opened
func (o *Order) AwaitsCardPayment() bool {
	return o.PaymentMethod == PaymentMethodCard &&
		o.PaymentStatus == PaymentPending &&
		o.Status == StatusPending
}
