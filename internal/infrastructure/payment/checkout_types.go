package payment

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutLine is one priced line sent to the hosted checkout page
type CheckoutLine struct {
	Name      string
	ImageURL  string
	UnitPrice decimal.Decimal
	Quantity  int
}

// CheckoutRequest contains input for creating a checkout session
type CheckoutRequest struct {
	OrderID       uuid.UUID
	CustomerEmail string
	Currency      string
	Lines         []CheckoutLine
}

// CheckoutSession is the processor-hosted payment handoff
type CheckoutSession struct {
	ID  string
	URL string
}

// ToMinorUnits converts a decimal amount to the smallest currency unit
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
