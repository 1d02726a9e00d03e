package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, id, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) IsProcessed(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func TestIdempotentHandler_SkipsDuplicates(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()
	inner := newTestHandler("OrderPaid")
	h := NewIdempotentHandler(inner, store, zap.NewNop())

	event := newTestEvent("OrderPaid")
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), newTestEvent("OrderPaid")))

	assert.Len(t, inner.getHandled(), 2)
	assert.Equal(t, IdempotencyStats{Processed: 2, Duplicate: 1}, h.Stats())
	assert.Equal(t, []string{"OrderPaid"}, h.EventTypes())
}

func TestIdempotentHandler_OutcomeKey(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()
	inner := newTestHandler()
	h := NewIdempotentHandler(inner, store, nil, WithKeyFunc(OutcomeKey), WithTTL(time.Hour))

	o := paidOrder()
	ctx := context.Background()
	require.NoError(t, h.Handle(ctx, order.NewOrderPaidEvent(o)))
	require.NoError(t, h.Handle(ctx, order.NewOrderPaidEvent(o)))
	require.NoError(t, h.Handle(ctx, order.NewOrderStatusChangedEvent(o, order.StatusPending)))
	require.NoError(t, h.Handle(ctx, order.NewOrderStatusChangedEvent(o, order.StatusPending)))

	assert.Len(t, inner.getHandled(), 3, "one paid outcome per order, status changes are distinct events")
}

func TestIdempotentHandler_StoreFailureLetsEventThrough(t *testing.T) {
	store := new(mockIdempotencyStore)
	store.On("MarkProcessed", mock.Anything, mock.AnythingOfType("string"), DefaultIdempotencyTTL).
		Return(false, errors.New("redis down"))
	inner := newTestHandler()
	h := NewIdempotentHandler(inner, store, zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), newTestEvent("OrderPaid")))

	assert.Len(t, inner.getHandled(), 1)
	store.AssertExpectations(t)
}

func TestIdempotentHandler_HandlerError(t *testing.T) {
	store := new(mockIdempotencyStore)
	store.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	inner := newTestHandler()
	inner.err = errors.New("render failed")
	h := NewIdempotentHandler(inner, store, zap.NewNop())

	err := h.Handle(context.Background(), newTestEvent("OrderPaid"))

	assert.EqualError(t, err, "render failed")
	assert.Equal(t, int64(1), h.Stats().Failed)
}
