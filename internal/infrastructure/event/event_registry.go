package event

import "github.com/storefront/backend/internal/domain/order"

// RegisterOrderEvents registers the order lifecycle events that are
// forwarded out of the process
func RegisterOrderEvents(serializer *EventSerializer) {
	serializer.Register(order.EventTypeOrderPlaced, &order.OrderPlacedEvent{})
	serializer.Register(order.EventTypeOrderPaid, &order.OrderPaidEvent{})
	serializer.Register(order.EventTypeOrderPaymentFailed, &order.OrderPaymentFailedEvent{})
	serializer.Register(order.EventTypeOrderStatusChanged, &order.OrderStatusChangedEvent{})
}
