package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// MetricsError describes a metrics construction failure.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewStoreMetrics", Err: "meter cannot be nil"}

// StoreMetrics tracks order placement, revenue, payment notifications and
// stock conflicts.
type StoreMetrics struct {
	logger *zap.Logger

	ordersPlaced   *Counter
	ordersPaid     *Counter
	revenueCents   *Counter
	webhooks       *Counter
	stockConflicts *Counter
}

// StoreMetricsConfig holds configuration for store metrics.
type StoreMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewStoreMetrics creates a new StoreMetrics instance.
func NewStoreMetrics(cfg StoreMetricsConfig) (*StoreMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &StoreMetrics{logger: logger}

	var err error
	if sm.ordersPlaced, err = NewCounter(cfg.Meter, "storefront.orders.placed", "Orders committed at checkout", "{orders}"); err != nil {
		return nil, err
	}
	if sm.ordersPaid, err = NewCounter(cfg.Meter, "storefront.orders.paid", "Orders whose payment settled", "{orders}"); err != nil {
		return nil, err
	}
	if sm.revenueCents, err = NewCounter(cfg.Meter, "storefront.orders.revenue", "Paid order totals in minor currency units", "{cents}"); err != nil {
		return nil, err
	}
	if sm.webhooks, err = NewCounter(cfg.Meter, "storefront.payments.webhooks", "Payment processor notifications by outcome", "{events}"); err != nil {
		return nil, err
	}
	if sm.stockConflicts, err = NewCounter(cfg.Meter, "storefront.stock.conflicts", "Placements rejected for insufficient stock", "{orders}"); err != nil {
		return nil, err
	}

	return sm, nil
}

// RecordOrderPlaced counts a committed order.
func (sm *StoreMetrics) RecordOrderPlaced(ctx context.Context, method string, total decimal.Decimal) {
	sm.ordersPlaced.Inc(ctx, AttrPaymentMethod.String(method))
	sm.logger.Debug("order placed metric recorded",
		zap.String("payment_method", method),
		zap.String("total", total.StringFixed(2)))
}

// RecordOrderPaid counts a settled payment and adds its total to revenue.
func (sm *StoreMetrics) RecordOrderPaid(ctx context.Context, method string, total decimal.Decimal) {
	sm.ordersPaid.Inc(ctx, AttrPaymentMethod.String(method))
	sm.revenueCents.AddN(ctx, total.Shift(2).Round(0).IntPart(), AttrPaymentMethod.String(method))
}

// RecordStockConflict counts a placement rejected for stock.
func (sm *StoreMetrics) RecordStockConflict(ctx context.Context) {
	sm.stockConflicts.Inc(ctx)
}

// RecordWebhook counts a processor notification by event type and outcome.
func (sm *StoreMetrics) RecordWebhook(ctx context.Context, eventType, outcome string) {
	sm.webhooks.Inc(ctx, AttrEventType.String(eventType), AttrOutcome.String(outcome))
}
