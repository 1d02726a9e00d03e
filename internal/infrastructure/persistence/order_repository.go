package persistence

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormOrderRepository implements the order read model together with the
// placement, payment and status stores. All writes that touch stock run in
// the same transaction as the order change that caused them.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	})
}

func (r *GormOrderRepository) first(query *gorm.DB) (*order.Order, error) {
	var o order.Order
	if err := query.First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByID finds an order with its items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.first(r.withItems(ctx).Where("id = ?", id))
}

// FindByIDForUser finds an order placed by the user
func (r *GormOrderRepository) FindByIDForUser(ctx context.Context, userID, id uuid.UUID) (*order.Order, error) {
	return r.first(r.withItems(ctx).Where("user_id = ? AND id = ?", userID, id))
}

// FindByPaymentIntent finds the order a payment intent was created for
func (r *GormOrderRepository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*order.Order, error) {
	if paymentIntentID == "" {
		return nil, shared.ErrNotFound
	}
	return r.first(r.withItems(ctx).Where("payment_intent_id = ?", paymentIntentID))
}

// ListByUser returns the user's orders, newest first
func (r *GormOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]order.Order, error) {
	var orders []order.Order
	if err := r.withItems(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListRecent returns the newest orders across all users
func (r *GormOrderRepository) ListRecent(ctx context.Context, limit int) ([]order.Order, error) {
	var orders []order.Order
	if err := r.withItems(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// List returns orders matching the admin filter
func (r *GormOrderRepository) List(ctx context.Context, filter order.ListFilter) ([]order.Order, error) {
	var orders []order.Order
	if err := r.applyFilter(r.withItems(ctx).Model(&order.Order{}), filter).
		Order(orderClause(filter.OrderBy, filter.OrderDir, OrderSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Count counts orders matching the filter
func (r *GormOrderRepository) Count(ctx context.Context, filter order.ListFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&order.Order{}), filter).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumRevenue totals paid orders
func (r *GormOrderRepository) SumRevenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("payment_status = ?", order.PaymentPaid).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter order.ListFilter) *gorm.DB {
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("(LOWER(customer_email) LIKE ? ESCAPE '\\' OR LOWER(customer_name) LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	return query
}

// PlaceAtomically inserts the order and its items and reserves stock for
// every item, all in one transaction. Products are decremented in id order
// so concurrent placements lock rows in the same sequence.
func (r *GormOrderRepository) PlaceAtomically(ctx context.Context, o *order.Order) error {
	if len(o.Items) == 0 {
		return order.ErrEmptyCart
	}

	reservations := make([]order.Item, len(o.Items))
	copy(reservations, o.Items)
	sort.Slice(reservations, func(i, j int) bool {
		return reservations[i].ProductID.String() < reservations[j].ProductID.String()
	})

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(o).Error; err != nil {
			return order.NewPersistenceError("insert order", err)
		}
		if err := tx.Create(&o.Items).Error; err != nil {
			return order.NewPersistenceError("insert order items", err)
		}

		now := time.Now().UTC()
		for _, item := range reservations {
			result := tx.Model(&catalog.Product{}).
				Where("id = ? AND stock_quantity >= ?", item.ProductID, item.Quantity).
				Updates(map[string]interface{}{
					"stock_quantity": gorm.Expr("stock_quantity - ?", item.Quantity),
					"version":        gorm.Expr("version + 1"),
					"updated_at":     now,
				})
			if result.Error != nil {
				return order.NewPersistenceError("reserve stock", result.Error)
			}
			if result.RowsAffected == 0 {
				return r.stockError(tx, item)
			}
		}
		return nil
	})
	if err == nil {
		return nil
	}

	var stockErr *order.StockInsufficientError
	var persistErr *order.PersistenceError
	if errors.As(err, &stockErr) || errors.As(err, &persistErr) {
		return err
	}
	return order.NewPersistenceError("commit order", err)
}

// stockError reports how many units were left when a reservation failed
func (r *GormOrderRepository) stockError(tx *gorm.DB, item order.Item) error {
	available := 0
	var product catalog.Product
	if err := tx.Select("stock_quantity").First(&product, "id = ?", item.ProductID).Error; err == nil {
		available = product.StockQuantity
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return order.NewPersistenceError("read stock", err)
	}
	return &order.StockInsufficientError{
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		Requested:   item.Quantity,
		Available:   available,
	}
}

// MarkPaidIfPending settles a pending payment. An order still pending
// fulfilment moves to processing; other open orders keep their status. A
// cancelled or failed order has already released its stock, so it is left
// unpaid and ErrOrderClosed is returned with the payment reference stored
// for the refund.
func (r *GormOrderRepository) MarkPaidIfPending(ctx context.Context, orderID uuid.UUID, paymentRef string) (bool, error) {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"payment_status": order.PaymentPaid,
		"paid_at":        now,
		"updated_at":     now,
		"version":        gorm.Expr("version + 1"),
	}
	if paymentRef != "" {
		updates["payment_intent_id"] = paymentRef
	}
	closedStatuses := []order.Status{order.StatusCancelled, order.StatusFailed}

	changed, closed := false, false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		withStatus := copyUpdates(updates)
		withStatus["status"] = order.StatusProcessing
		result := tx.Model(&order.Order{}).
			Where("id = ? AND payment_status = ? AND status = ?", orderID, order.PaymentPending, order.StatusPending).
			Updates(withStatus)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			changed = true
			return nil
		}

		result = tx.Model(&order.Order{}).
			Where("id = ? AND payment_status = ? AND status NOT IN ?", orderID, order.PaymentPending, closedStatuses).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			changed = true
			return nil
		}

		late := map[string]interface{}{"updated_at": now}
		if paymentRef != "" {
			late["payment_intent_id"] = paymentRef
		}
		result = tx.Model(&order.Order{}).
			Where("id = ? AND payment_status = ? AND status IN ?", orderID, order.PaymentPending, closedStatuses).
			Updates(late)
		if result.Error != nil {
			return result.Error
		}
		closed = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	if closed {
		return false, order.ErrOrderClosed
	}
	return changed, nil
}

// MarkFailedIfPending records a failed payment. An order still pending
// fulfilment moves to failed and its reserved stock is returned.
func (r *GormOrderRepository) MarkFailedIfPending(ctx context.Context, orderID uuid.UUID, paymentRef string) (bool, error) {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"payment_status": order.PaymentFailed,
		"updated_at":     now,
		"version":        gorm.Expr("version + 1"),
	}
	if paymentRef != "" {
		updates["payment_intent_id"] = paymentRef
	}

	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		withStatus := copyUpdates(updates)
		withStatus["status"] = order.StatusFailed
		result := tx.Model(&order.Order{}).
			Where("id = ? AND payment_status = ? AND status = ?", orderID, order.PaymentPending, order.StatusPending).
			Updates(withStatus)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			changed = true
			return releaseStock(tx, orderID, now)
		}

		result = tx.Model(&order.Order{}).
			Where("id = ? AND payment_status = ?", orderID, order.PaymentPending).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		changed = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// SetPaymentSession stores the checkout session opened for the order
func (r *GormOrderRepository) SetPaymentSession(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	result := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"payment_session_id": sessionID,
			"updated_at":         time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateStatus persists a fulfilment transition while the stored status is
// still from. Entering cancelled or failed returns the items' stock.
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, o *order.Order, from order.Status) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&order.Order{}).
			Where("id = ? AND status = ?", o.ID, from).
			Updates(map[string]interface{}{
				"status":             o.Status,
				"tracking_number":    o.TrackingNumber,
				"estimated_delivery": o.EstimatedDelivery,
				"updated_at":         o.UpdatedAt,
				"version":            gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if o.Status.ReleasesStock() && !from.ReleasesStock() {
			return releaseStock(tx, o.ID, o.UpdatedAt)
		}
		return nil
	})
}

// releaseStock returns every item's units to its product. Products deleted
// since placement are skipped.
func releaseStock(tx *gorm.DB, orderID uuid.UUID, at time.Time) error {
	var items []order.Item
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return err
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ProductID.String() < items[j].ProductID.String()
	})

	for _, item := range items {
		if err := tx.Model(&catalog.Product{}).
			Where("id = ?", item.ProductID).
			Updates(map[string]interface{}{
				"stock_quantity": gorm.Expr("stock_quantity + ?", item.Quantity),
				"version":        gorm.Expr("version + 1"),
				"updated_at":     at,
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

func copyUpdates(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Ensure GormOrderRepository implements the order stores
var (
	_ order.Repository     = (*GormOrderRepository)(nil)
	_ order.PlacementStore = (*GormOrderRepository)(nil)
	_ order.PaymentStore   = (*GormOrderRepository)(nil)
	_ order.StatusStore    = (*GormOrderRepository)(nil)
)
