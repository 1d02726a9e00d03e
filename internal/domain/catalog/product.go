package catalog

import (
	"strings"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable item. StockQuantity is the number of units that can
// still be reserved by new orders.
type Product struct {
	shared.BaseAggregateRoot
	Name          string          `gorm:"type:varchar(200);not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	ImageURL      string          `gorm:"type:text" json:"image_url"`
	CategoryID    *uuid.UUID      `gorm:"type:uuid;index" json:"category_id,omitempty"`
	StockQuantity int             `gorm:"not null;default:0" json:"stock_quantity"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// ProductInput carries the mutable attributes of a product
type ProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	ImageURL      string
	CategoryID    *uuid.UUID
	StockQuantity int
}

// NewProduct creates a new product
func NewProduct(in ProductInput) (*Product, error) {
	if err := validateProduct(in); err != nil {
		return nil, err
	}

	product := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(in.Name),
		Description:       in.Description,
		Price:             in.Price.Round(2),
		ImageURL:          in.ImageURL,
		CategoryID:        in.CategoryID,
		StockQuantity:     in.StockQuantity,
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// Update replaces the product's attributes
func (p *Product) Update(in ProductInput) error {
	if err := validateProduct(in); err != nil {
		return err
	}

	oldPrice := p.Price
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price.Round(2)
	p.ImageURL = in.ImageURL
	p.CategoryID = in.CategoryID
	p.StockQuantity = in.StockQuantity
	p.Touch()
	p.IncrementVersion()

	if !oldPrice.Equal(p.Price) {
		p.AddDomainEvent(NewProductPriceChangedEvent(p, oldPrice))
	}

	return nil
}

// SetStock overwrites the available stock, e.g. after a stock count
func (p *Product) SetStock(quantity int) error {
	if quantity < 0 {
		return shared.NewDomainError("INVALID_STOCK", "Stock quantity cannot be negative")
	}

	p.StockQuantity = quantity
	p.Touch()
	p.IncrementVersion()

	return nil
}

// HasStock reports whether quantity units are available
func (p *Product) HasStock(quantity int) bool {
	return quantity > 0 && p.StockQuantity >= quantity
}

func validateProduct(in ProductInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	if in.Price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if in.StockQuantity < 0 {
		return shared.NewDomainError("INVALID_STOCK", "Stock quantity cannot be negative")
	}
	return nil
}
