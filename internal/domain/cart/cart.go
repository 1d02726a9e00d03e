// Package cart holds the pre-checkout cart: an owned value with pure
// operations. The cart never touches storage; callers load it, mutate it and
// hand it back to whatever store keeps it for the session.
package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// ProductSnapshot is what the cart needs to know about a product when a line
// is added. The price is for display only; checkout re-reads it.
type ProductSnapshot struct {
	ID    uuid.UUID
	Name  string
	Price decimal.Decimal
}

// Line is one product in the cart
type Line struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Subtotal returns price × quantity
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart maps products to lines. Lines keep insertion order.
type Cart struct {
	UserID    uuid.UUID `json:"user_id"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an empty cart for the user
func New(userID uuid.UUID) *Cart {
	return &Cart{UserID: userID, Lines: make([]Line, 0)}
}

// Add increases the quantity of an existing line or inserts a new one.
// A zero quantity means one unit.
func (c *Cart) Add(product ProductSnapshot, quantity int) error {
	if product.ID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product is required")
	}
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	if i := c.index(product.ID); i >= 0 {
		c.Lines[i].Quantity += quantity
		c.Lines[i].Name = product.Name
		c.Lines[i].Price = product.Price
	} else {
		c.Lines = append(c.Lines, Line{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  quantity,
			Price:     product.Price,
		})
	}
	c.touch()
	return nil
}

// UpdateQuantity sets a line's quantity exactly. Anything below one removes
// the line. Stock is not checked here.
func (c *Cart) UpdateQuantity(productID uuid.UUID, quantity int) {
	if quantity < 1 {
		c.Remove(productID)
		return
	}
	if i := c.index(productID); i >= 0 {
		c.Lines[i].Quantity = quantity
		c.touch()
	}
}

// Remove deletes a line; removing an absent product is a no-op
func (c *Cart) Remove(productID uuid.UUID) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	c.touch()
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Lines = make([]Line, 0)
	c.touch()
}

// Total is Σ price × quantity, computed on every call
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// ItemCount is the number of units across all lines
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Find returns the line for a product
func (c *Cart) Find(productID uuid.UUID) (Line, bool) {
	if i := c.index(productID); i >= 0 {
		return c.Lines[i], true
	}
	return Line{}, false
}

func (c *Cart) index(productID uuid.UUID) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}
