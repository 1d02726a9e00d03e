package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// Stripe event types handled by the webhook
const (
	EventCheckoutSessionCompleted      = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventPaymentIntentFailed           = "payment_intent.payment_failed"
)

// ProcessedEventTTL is how long a processed event ID is remembered
const ProcessedEventTTL = 72 * time.Hour

// ErrInvalidSignature is returned when the payload fails verification
var ErrInvalidSignature = shared.NewDomainError("INVALID_SIGNATURE", "Webhook signature verification failed")

// WebhookService reconciles orders with Stripe payment notifications.
// Notifications may arrive late, twice or out of order; every write is
// conditional on a pending payment so replays are harmless.
type WebhookService struct {
	config       *payment.StripeConfig
	orderRepo    order.Repository
	paymentStore order.PaymentStore
	processed    shared.IdempotencyStore
	eventBus     shared.EventPublisher
	logger       *zap.Logger
	metrics      *telemetry.StoreMetrics
}

// WebhookServiceConfig contains configuration for WebhookService
type WebhookServiceConfig struct {
	Config       *payment.StripeConfig
	OrderRepo    order.Repository
	PaymentStore order.PaymentStore
	Processed    shared.IdempotencyStore
	EventBus     shared.EventPublisher
	Logger       *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookService{
		config:       cfg.Config,
		orderRepo:    cfg.OrderRepo,
		paymentStore: cfg.PaymentStore,
		processed:    cfg.Processed,
		eventBus:     cfg.EventBus,
		logger:       logger,
	}
}

// SetStoreMetrics sets the store metrics collector
func (s *WebhookService) SetStoreMetrics(m *telemetry.StoreMetrics) {
	s.metrics = m
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string     `json:"event_id"`
	EventType string     `json:"event_type"`
	Processed bool       `json:"processed"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// ProcessWebhook verifies and applies a Stripe webhook event. Nothing is read
// or written before the signature checks out.
func (s *WebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (result *WebhookResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "payment", "process_webhook")
	defer func() { telemetry.EndSpan(span, err) }()

	event, err := webhook.ConstructEvent(payload, signature, s.config.WebhookSecret)
	if err != nil {
		s.logger.Warn("Failed to verify webhook signature", zap.Error(err))
		s.record(ctx, "unknown", "rejected")
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	span.SetAttributes(telemetry.SpanAttrEventType.String(string(event.Type)))
	result = &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
	}

	if s.processed != nil {
		seen, err := s.processed.IsProcessed(ctx, event.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check processed events: %w", err)
		}
		if seen {
			s.logger.Info("Skipping redelivered webhook event",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)))
			s.record(ctx, string(event.Type), "duplicate")
			result.Message = "duplicate event"
			return result, nil
		}
	}

	s.logger.Info("Processing Stripe webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	switch string(event.Type) {
	case EventCheckoutSessionCompleted, EventCheckoutAsyncPaymentSucceeded:
		err = s.handleCheckoutCompleted(ctx, event, result)
	case EventPaymentIntentFailed:
		err = s.handlePaymentFailed(ctx, event, result)
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Message = "Event type not handled"
	}

	if err != nil {
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		s.record(ctx, string(event.Type), "error")
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}

	if s.processed != nil {
		if _, err := s.processed.MarkProcessed(ctx, event.ID, ProcessedEventTTL); err != nil {
			// The conditional writes already made the event safe to replay
			s.logger.Warn("Failed to record processed webhook event",
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}

	if result.Processed {
		s.record(ctx, string(event.Type), "applied")
	} else {
		s.record(ctx, string(event.Type), "ignored")
	}
	return result, nil
}

// handleCheckoutCompleted marks the order named in the session metadata as paid
func (s *WebhookService) handleCheckoutCompleted(ctx context.Context, event stripe.Event, result *WebhookResult) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	orderID, ok := orderIDFromMetadata(session.Metadata)
	if !ok {
		s.logger.Warn("Checkout session has no usable order_id metadata, skipping",
			zap.String("session_id", session.ID))
		result.Message = "missing order reference"
		return nil
	}
	result.OrderID = &orderID

	if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		s.logger.Info("Checkout session completed without payment yet",
			zap.String("session_id", session.ID),
			zap.String("order_id", orderID.String()))
		result.Message = "payment not yet settled"
		return nil
	}

	paymentRef := ""
	if session.PaymentIntent != nil {
		paymentRef = session.PaymentIntent.ID
	}

	changed, err := s.paymentStore.MarkPaidIfPending(ctx, orderID, paymentRef)
	if errors.Is(err, order.ErrOrderClosed) {
		// Stock was already released; the payment has to go back to the customer
		s.logger.Warn("Payment received for a closed order, refund required",
			zap.String("order_id", orderID.String()),
			zap.String("payment_intent_id", paymentRef))
		result.Message = "order closed, refund required"
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	if !changed {
		s.logger.Info("Order payment already settled, ignoring",
			zap.String("order_id", orderID.String()))
		result.Message = "order already settled"
		return nil
	}
	result.Processed = true

	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		// The payment is recorded; only the follow-up notifications are lost
		s.logger.Error("Failed to reload paid order",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return nil
	}

	if s.metrics != nil {
		s.metrics.RecordOrderPaid(ctx, string(o.PaymentMethod), o.TotalAmount)
	}
	s.publish(ctx, order.NewOrderPaidEvent(o))

	s.logger.Info("Order paid",
		zap.String("order_id", orderID.String()),
		zap.String("payment_intent_id", paymentRef))
	return nil
}

// handlePaymentFailed marks the order behind a failed payment intent. The
// order is found by payment reference first, then by metadata.
func (s *WebhookService) handlePaymentFailed(ctx context.Context, event stripe.Event, result *WebhookResult) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}

	orderID, err := s.resolveFailedOrder(ctx, &intent)
	if err != nil {
		return err
	}
	if orderID == uuid.Nil {
		s.logger.Warn("No order found for failed payment intent, skipping",
			zap.String("payment_intent_id", intent.ID))
		result.Message = "order not found"
		return nil
	}
	result.OrderID = &orderID

	changed, err := s.paymentStore.MarkFailedIfPending(ctx, orderID, intent.ID)
	if err != nil {
		return fmt.Errorf("failed to mark order payment failed: %w", err)
	}
	if !changed {
		s.logger.Info("Order payment already settled, ignoring failure",
			zap.String("order_id", orderID.String()))
		result.Message = "order already settled"
		return nil
	}
	result.Processed = true

	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		s.logger.Error("Failed to reload failed order",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return nil
	}
	s.publish(ctx, order.NewOrderPaymentFailedEvent(o))

	reason := ""
	if intent.LastPaymentError != nil {
		reason = intent.LastPaymentError.Msg
	}
	s.logger.Info("Order payment failed",
		zap.String("order_id", orderID.String()),
		zap.String("payment_intent_id", intent.ID),
		zap.String("reason", reason))
	return nil
}

func (s *WebhookService) resolveFailedOrder(ctx context.Context, intent *stripe.PaymentIntent) (uuid.UUID, error) {
	if intent.ID != "" {
		o, err := s.orderRepo.FindByPaymentIntent(ctx, intent.ID)
		if err == nil {
			return o.ID, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return uuid.Nil, fmt.Errorf("failed to find order by payment intent: %w", err)
		}
	}
	if orderID, ok := orderIDFromMetadata(intent.Metadata); ok {
		return orderID, nil
	}
	return uuid.Nil, nil
}

func (s *WebhookService) publish(ctx context.Context, event shared.DomainEvent) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish payment event",
			zap.String("event_type", event.EventType()),
			zap.Error(err))
	}
}

func (s *WebhookService) record(ctx context.Context, eventType, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordWebhook(ctx, eventType, outcome)
	}
}

func orderIDFromMetadata(metadata map[string]string) (uuid.UUID, bool) {
	raw, ok := metadata[payment.MetadataOrderID]
	if !ok || raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
