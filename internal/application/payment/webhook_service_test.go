package payment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	infrapayment "github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_secret"

// MockOrderRepository is a mock implementation of order.Repository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByIDForUser(ctx context.Context, userID, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*order.Order, error) {
	args := m.Called(ctx, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]order.Order, error) {
	args := m.Called(ctx, userID, filter)
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) ListRecent(ctx context.Context, limit int) ([]order.Order, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filter order.ListFilter) ([]order.Order, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) Count(ctx context.Context, filter order.ListFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) SumRevenue(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockPaymentStore is a mock implementation of order.PaymentStore
type MockPaymentStore struct {
	mock.Mock
}

func (m *MockPaymentStore) MarkPaidIfPending(ctx context.Context, orderID uuid.UUID, paymentRef string) (bool, error) {
	args := m.Called(ctx, orderID, paymentRef)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentStore) MarkFailedIfPending(ctx context.Context, orderID uuid.UUID, paymentRef string) (bool, error) {
	args := m.Called(ctx, orderID, paymentRef)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentStore) SetPaymentSession(ctx context.Context, orderID uuid.UUID, sessionID string) error {
	args := m.Called(ctx, orderID, sessionID)
	return args.Error(0)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, id, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	return nil
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

type webhookFixture struct {
	service   *WebhookService
	orders    *MockOrderRepository
	payments  *MockPaymentStore
	processed *MockIdempotencyStore
	events    *MockEventPublisher
}

func newWebhookFixture() *webhookFixture {
	f := &webhookFixture{
		orders:    new(MockOrderRepository),
		payments:  new(MockPaymentStore),
		processed: new(MockIdempotencyStore),
		events:    new(MockEventPublisher),
	}
	f.service = NewWebhookService(WebhookServiceConfig{
		Config:       &infrapayment.StripeConfig{WebhookSecret: testWebhookSecret},
		OrderRepo:    f.orders,
		PaymentStore: f.payments,
		Processed:    f.processed,
		EventBus:     f.events,
		Logger:       zap.NewNop(),
	})
	return f
}

func signedEvent(t *testing.T, id, eventType string, object map[string]any) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"created":     time.Now().Unix(),
		"data":        map[string]any{"object": object},
	})
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  testWebhookSecret,
	})
	return signed.Payload, signed.Header
}

func paidOrder(id uuid.UUID) *order.Order {
	o := &order.Order{
		UserID:        uuid.New(),
		Status:        order.StatusProcessing,
		PaymentStatus: order.PaymentPaid,
		PaymentMethod: order.PaymentMethodCard,
		TotalAmount:   decimal.RequireFromString("42.00"),
	}
	o.ID = id
	return o
}

func TestProcessWebhook_InvalidSignature(t *testing.T) {
	f := newWebhookFixture()
	payload, _ := signedEvent(t, "evt_1", EventCheckoutSessionCompleted, map[string]any{"id": "cs_1"})

	result, err := f.service.ProcessWebhook(context.Background(), payload, "t=1,v1=deadbeef")

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrInvalidSignature))
	f.processed.AssertNotCalled(t, "IsProcessed", mock.Anything, mock.Anything)
	f.payments.AssertNotCalled(t, "MarkPaidIfPending", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessWebhook_CheckoutCompleted(t *testing.T) {
	f := newWebhookFixture()
	ctx := context.Background()
	orderID := uuid.New()

	payload, sig := signedEvent(t, "evt_paid", EventCheckoutSessionCompleted, map[string]any{
		"id":             "cs_test_1",
		"object":         "checkout.session",
		"payment_status": "paid",
		"payment_intent": "pi_123",
		"metadata":       map[string]string{"order_id": orderID.String()},
	})

	f.processed.On("IsProcessed", mock.Anything, "evt_paid").Return(false, nil)
	f.payments.On("MarkPaidIfPending", mock.Anything, orderID, "pi_123").Return(true, nil)
	f.orders.On("FindByID", mock.Anything, orderID).Return(paidOrder(orderID), nil)
	f.events.On("Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return len(events) == 1 && events[0].EventType() == order.EventTypeOrderPaid
	})).Return(nil)
	f.processed.On("MarkProcessed", mock.Anything, "evt_paid", ProcessedEventTTL).Return(true, nil)

	result, err := f.service.ProcessWebhook(ctx, payload, sig)

	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, "evt_paid", result.EventID)
	require.NotNil(t, result.OrderID)
	assert.Equal(t, orderID, *result.OrderID)
	f.events.AssertExpectations(t)
	f.processed.AssertExpectations(t)
}

func TestProcessWebhook_CheckoutCompleted_AlreadySettled(t *testing.T) {
	f := newWebhookFixture()
	ctx := context.Background()
	orderID := uuid.New()

	payload, sig := signedEvent(t, "evt_late", EventCheckoutSessionCompleted, map[string]any{
		"id":             "cs_test_1",
		"payment_status": "paid",
		"payment_intent": "pi_123",
		"metadata":       map[string]string{"order_id": orderID.String()},
	})

	f.processed.On("IsProcessed", mock.Anything, "evt_late").Return(false, nil)
	f.payments.On("MarkPaidIfPending", mock.Anything, orderID, "pi_123").Return(false, nil)
	f.processed.On("MarkProcessed", mock.Anything, "evt_late", ProcessedEventTTL).Return(true, nil)

	result, err := f.service.ProcessWebhook(ctx, payload, sig)

	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Equal(t, "order already settled", result.Message)
	f.orders.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestProcessWebhook_CheckoutCompleted_ClosedOrder(t *testing.T) {
	f := newWebhookFixture()
	ctx := context.Background()
	orderID := uuid.New()

	payload, sig := signedEvent(t, "evt_cancelled", EventCheckoutSessionCompleted, map[string]any{
		"id":             "cs_test_9",
		"payment_status": "paid",
		"payment_intent": "pi_late",
		"metadata":       map[string]string{"order_id": orderID.String()},
	})

	f.processed.On("IsProcessed", mock.Anything, "evt_cancelled").Return(false, nil)
	f.payments.On("MarkPaidIfPending", mock.Anything, orderID, "pi_late").Return(false, order.ErrOrderClosed)
	f.processed.On("MarkProcessed", mock.Anything, "evt_cancelled", ProcessedEventTTL).Return(true, nil)

	result, err := f.service.ProcessWebhook(ctx, payload, sig)

	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Equal(t, "order closed, refund required", result.Message)
	f.orders.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	f.processed.AssertExpectations(t)
}

func TestProcessWebhook_CheckoutCompleted_MissingMetadata(t *testing.T) {
	f := newWebhookFixture()
	ctx := context.Background()

	for _, metadata := range []map[string]string{{}, {"order_id": "not-a-uuid"}} {
		payload, sig := signedEvent(t, "evt_nometa", EventCheckoutSessionCompleted, map[string]any{
			"id":             "cs_test_1",
			"payment_status": "paid",
			"metadata":       metadata,
		})
		f.processed.On("IsProcessed", mock.Anything, "evt_nometa").Return(false, nil)
		f.processed.On("MarkProcessed", mock.Anything, "evt_nometa", ProcessedEventTTL).Return(true, nil)

		result, err := f.service.ProcessWebhook(ctx, payload, sig)

		require.NoError(t, err)
		assert.False(t, result.Processed)
		assert.Equal(t, "missing order reference", result.Message)
	}
	f.payments.AssertNotCalled(t, "MarkPaidIfPending", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessWebhook_CheckoutCompleted_Unpaid(t *testing.T) {
	f := newWebhookFixture()
	ctx := context.Background()

	payload, sig := signedEvent(t, "evt_async", EventCheckoutSessionCompleted, map[string]any{
		"id":             "cs_test_1",
		"payment_status": "unpaid",
		"metadata":       map[string]string{"order_id": uuid.NewString()},
	})
	f.processed.On("IsProcessed", mock.Anything, "evt_async").Return(false, nil)
	f.processed.On("MarkProcessed", mock.Anything, "evt_async", ProcessedEventTTL).Return(true, nil)

	result, err := f.service.ProcessWebhook(ctx, payload, sig)

	require.NoError(t, err)
	assert.False(t, result.Processed)
	f.payments.AssertNotCalled(t, "MarkPaidIfPending", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessWebhook_Duplicate(t *testing.T) {
	f := newWebhookFixture()
	ctx := context.Background()

	payload, sig := signedEvent(t, "evt_dup", EventCheckoutSessionCompleted, map[string]any{
		"id":       "cs_test_1",
		"metadata": map[string]string{"order_id": uuid.NewString()},
	})
	f.processed.On("IsProcessed", mock.Anything, "evt_dup").Return(true, nil)

	result, err := f.service.ProcessWebhook(ctx, payload, sig)

	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Equal(t, "duplicate event", result.Message)
	f.payments.AssertNotCalled(t, "MarkPaidIfPending", mock.Anything, mock.Anything, mock.Anything)
	f.processed.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessWebhook_PaymentFailed_ByPaymentIntent(t *testing.T) {
	f := newWebhookFixture()
	ctx := context.Background()
	orderID := uuid.New()

	payload, sig := signedEvent(t, "evt_fail", EventPaymentIntentFailed, map[string]any{
		"id":                 "pi_456",
		"object":             "payment_intent",
		"last_payment_error": map[string]any{"message": "Your card was declined."},
	})

	failed := paidOrder(orderID)
	failed.Status = order.StatusFailed
	failed.PaymentStatus = order.PaymentFailed

	f.processed.On("IsProcessed", mock.Anything, "evt_fail").Return(false, nil)
	f.orders.On("FindByPaymentIntent", mock.Anything, "pi_456").Return(paidOrder(orderID), nil)
	f.payments.On("MarkFailedIfPending", mock.Anything, orderID, "pi_456").Return(true, nil)
	f.orders.On("FindByID", mock.Anything, orderID).Return(failed, nil)
	f.events.On("Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return len(events) == 1 && events[0].EventType() == order.EventTypeOrderPaymentFailed
	})).Return(nil)
	f.processed.On("MarkProcessed", mock.Anything, "evt_fail", ProcessedEventTTL).Return(true, nil)

	result, err := f.service.ProcessWebhook(ctx, payload, sig)

	require.NoError(t, err)
	assert.True(t, result.Processed)
	f.events.AssertExpectations(t)
}

func TestProcessWebhook_PaymentFailed_FallsBackToMetadata(t *testing.T) {
	f := newWebhookFixture()
	ctx := context.Background()
	orderID := uuid.New()

	payload, sig := signedEvent(t, "evt_fail2", EventPaymentIntentFailed, map[string]any{
		"id":       "pi_789",
		"object":   "payment_intent",
		"metadata": map[string]string{"order_id": orderID.String()},
	})

	f.processed.On("IsProcessed", mock.Anything, "evt_fail2").Return(false, nil)
	f.orders.On("FindByPaymentIntent", mock.Anything, "pi_789").Return(nil, shared.ErrNotFound)
	f.payments.On("MarkFailedIfPending", mock.Anything, orderID, "pi_789").Return(false, nil)
	f.processed.On("MarkProcessed", mock.Anything, "evt_fail2", ProcessedEventTTL).Return(true, nil)

	result, err := f.service.ProcessWebhook(ctx, payload, sig)

	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Equal(t, orderID, *result.OrderID)
	f.payments.AssertExpectations(t)
}

func TestProcessWebhook_PaymentFailed_UnknownOrder(t *testing.T) {
	f := newWebhookFixture()
	ctx := context.Background()

	payload, sig := signedEvent(t, "evt_orphan", EventPaymentIntentFailed, map[string]any{
		"id":     "pi_000",
		"object": "payment_intent",
	})

	f.processed.On("IsProcessed", mock.Anything, "evt_orphan").Return(false, nil)
	f.orders.On("FindByPaymentIntent", mock.Anything, "pi_000").Return(nil, shared.ErrNotFound)
	f.processed.On("MarkProcessed", mock.Anything, "evt_orphan", ProcessedEventTTL).Return(true, nil)

	result, err := f.service.ProcessWebhook(ctx, payload, sig)

	require.NoError(t, err)
	assert.Equal(t, "order not found", result.Message)
	f.payments.AssertNotCalled(t, "MarkFailedIfPending", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessWebhook_StorageErrorIsReturned(t *testing.T) {
	f := newWebhookFixture()
	ctx := context.Background()
	orderID := uuid.New()

	payload, sig := signedEvent(t, "evt_db", EventCheckoutSessionCompleted, map[string]any{
		"id":             "cs_test_1",
		"payment_status": "paid",
		"payment_intent": "pi_1",
		"metadata":       map[string]string{"order_id": orderID.String()},
	})

	f.processed.On("IsProcessed", mock.Anything, "evt_db").Return(false, nil)
	f.payments.On("MarkPaidIfPending", mock.Anything, orderID, "pi_1").Return(false, errors.New("connection reset"))

	result, err := f.service.ProcessWebhook(ctx, payload, sig)

	require.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Processed)
	f.processed.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessWebhook_UnhandledEventType(t *testing.T) {
	f := newWebhookFixture()
	ctx := context.Background()

	payload, sig := signedEvent(t, "evt_other", "customer.created", map[string]any{"id": "cus_1"})
	f.processed.On("IsProcessed", mock.Anything, "evt_other").Return(false, nil)
	f.processed.On("MarkProcessed", mock.Anything, "evt_other", ProcessedEventTTL).Return(true, nil)

	result, err := f.service.ProcessWebhook(ctx, payload, sig)

	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Equal(t, "Event type not handled", result.Message)
}
