package persistence

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/customer"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens a file-backed SQLite database with the storefront schema.
// A single connection serialises transactions the way row locks would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "storefront.db") + "?_busy_timeout=5000&_foreign_keys=1"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&customer.Profile{},
		&catalog.Category{},
		&catalog.Product{},
		&catalog.Review{},
		&customer.Address{},
		&customer.WishlistItem{},
		&order.Order{},
		&order.Item{},
	))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(catalog.ProductInput{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	})
	require.NoError(t, err)
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedAddress(t *testing.T, db *gorm.DB, userID uuid.UUID) *customer.Address {
	t.Helper()
	a, err := customer.NewAddress(userID, customer.AddressFields{
		FullName:   "Ada Lovelace",
		Street:     "12 Analytical Row",
		City:       "London",
		PostalCode: "N1 9GU",
		Country:    "UK",
	}, true)
	require.NoError(t, err)
	require.NoError(t, db.Create(a).Error)
	return a
}

func newPendingOrder(t *testing.T, userID uuid.UUID, address *customer.Address, method order.PaymentMethod, lines ...order.PricedLine) *order.Order {
	t.Helper()
	o, err := order.NewOrder(order.PlaceInput{
		UserID:          userID,
		CustomerEmail:   "ada@example.com",
		CustomerName:    "Ada Lovelace",
		PaymentMethod:   method,
		ShippingAddress: address,
		Lines:           lines,
	})
	require.NoError(t, err)
	return o
}

func lineFor(p *catalog.Product, qty int) order.PricedLine {
	return order.PricedLine{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    qty,
		UnitPrice:   p.Price,
	}
}

func stockOf(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var p catalog.Product
	require.NoError(t, db.First(&p, "id = ?", id).Error)
	return p.StockQuantity
}
