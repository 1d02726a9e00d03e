package telemetry_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*telemetry.StoreMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	sm, err := telemetry.NewStoreMetrics(telemetry.StoreMetricsConfig{
		Meter: provider.Meter("test"),
	})
	require.NoError(t, err)
	return sm, reader
}

// sumOf totals every data point of the named int64 counter matching attrs
func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				matches := true
				for _, kv := range attrs {
					v, found := dp.Attributes.Value(kv.Key)
					if !found || v != kv.Value {
						matches = false
						break
					}
				}
				if matches {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestNewStoreMetrics_NilMeter(t *testing.T) {
	sm, err := telemetry.NewStoreMetrics(telemetry.StoreMetricsConfig{})

	require.Error(t, err)
	assert.Nil(t, sm)
	assert.Equal(t, "NewStoreMetrics: meter cannot be nil", err.Error())
}

func TestStoreMetrics_Orders(t *testing.T) {
	sm, reader := newTestMetrics(t)
	ctx := context.Background()

	sm.RecordOrderPlaced(ctx, "card", decimal.RequireFromString("10.00"))
	sm.RecordOrderPlaced(ctx, "cash", decimal.RequireFromString("5.00"))
	sm.RecordOrderPlaced(ctx, "card", decimal.RequireFromString("7.50"))
	sm.RecordOrderPaid(ctx, "card", decimal.RequireFromString("19.99"))
	sm.RecordOrderPaid(ctx, "cash", decimal.RequireFromString("0.01"))

	assert.Equal(t, int64(3), sumOf(t, reader, "storefront.orders.placed"))
	assert.Equal(t, int64(2), sumOf(t, reader, "storefront.orders.placed", telemetry.AttrPaymentMethod.String("card")))
	assert.Equal(t, int64(2), sumOf(t, reader, "storefront.orders.paid"))
	assert.Equal(t, int64(2000), sumOf(t, reader, "storefront.orders.revenue"))
}

func TestStoreMetrics_WebhooksAndConflicts(t *testing.T) {
	sm, reader := newTestMetrics(t)
	ctx := context.Background()

	sm.RecordWebhook(ctx, "checkout.session.completed", "applied")
	sm.RecordWebhook(ctx, "checkout.session.completed", "duplicate")
	sm.RecordWebhook(ctx, "unknown", "rejected")
	sm.RecordStockConflict(ctx)

	assert.Equal(t, int64(3), sumOf(t, reader, "storefront.payments.webhooks"))
	assert.Equal(t, int64(1), sumOf(t, reader, "storefront.payments.webhooks", telemetry.AttrOutcome.String("duplicate")))
	assert.Equal(t, int64(1), sumOf(t, reader, "storefront.stock.conflicts"))
}
