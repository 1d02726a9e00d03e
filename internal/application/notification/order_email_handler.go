package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/email"
	"go.uber.org/zap"
)

// OrderEmailHandler sends customer emails for order lifecycle events.
// Delivery is fire-and-forget: failures are logged and never returned, so
// a mail outage cannot undo or retry a committed order change.
type OrderEmailHandler struct {
	orders       order.Repository
	mailer       email.Mailer
	renderer     *email.Renderer
	adminAddress string
	logger       *zap.Logger
}

// NewOrderEmailHandler creates a new handler for order emails
func NewOrderEmailHandler(orders order.Repository, mailer email.Mailer, renderer *email.Renderer, logger *zap.Logger) *OrderEmailHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderEmailHandler{
		orders:   orders,
		mailer:   mailer,
		renderer: renderer,
		logger:   logger,
	}
}

// WithAdminCopy blind-copies order confirmations to the given address
func (h *OrderEmailHandler) WithAdminCopy(address string) *OrderEmailHandler {
	h.adminAddress = address
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *OrderEmailHandler) EventTypes() []string {
	return []string{
		order.EventTypeOrderPaid,
		order.EventTypeOrderPaymentFailed,
		order.EventTypeOrderStatusChanged,
	}
}

// Handle renders and sends the email for an order event
func (h *OrderEmailHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var (
		orderID      uuid.UUID
		confirmation bool
	)

	switch e := event.(type) {
	case *order.OrderPaidEvent:
		orderID = e.OrderID
		confirmation = true
	case *order.OrderPaymentFailedEvent:
		orderID = e.OrderID
	case *order.OrderStatusChangedEvent:
		orderID = e.OrderID
	default:
		h.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	o, err := h.orders.FindByID(ctx, orderID)
	if err != nil {
		h.logger.Error("failed to load order for email",
			zap.String("order_id", orderID.String()),
			zap.String("event_type", event.EventType()),
			zap.Error(err))
		return nil
	}
	if o.CustomerEmail == "" {
		h.logger.Warn("order has no customer email, skipping notification",
			zap.String("order_id", orderID.String()))
		return nil
	}

	var msg email.Message
	if confirmation {
		msg, err = h.renderer.OrderConfirmation(o)
		if err == nil && h.adminAddress != "" {
			msg.Bcc = []string{h.adminAddress}
		}
	} else {
		msg, err = h.renderer.OrderStatus(o)
	}
	if err != nil {
		h.logger.Error("failed to render order email",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return nil
	}

	if err := h.mailer.Send(ctx, msg); err != nil {
		h.logger.Error("failed to send order email",
			zap.String("order_id", orderID.String()),
			zap.String("event_type", event.EventType()),
			zap.Error(err))
		return nil
	}

	h.logger.Info("order email sent",
		zap.String("order_id", orderID.String()),
		zap.String("event_type", event.EventType()))
	return nil
}

var _ shared.EventHandler = (*OrderEmailHandler)(nil)
