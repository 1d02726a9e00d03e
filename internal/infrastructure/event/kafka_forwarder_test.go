package event

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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if p.err == nil {
			p.records = append(p.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func (p *fakeProducer) Close() {
	p.closed = true
}

func paidOrder() *order.Order {
	return &order.Order{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: shared.BaseEntity{ID: uuid.New()}},
		UserID:            uuid.New(),
		PaymentIntentID:   "pi_123",
		TotalAmount:       decimal.RequireFromString("49.00"),
	}
}

func newOrderSerializer() *EventSerializer {
	s := NewEventSerializer()
	RegisterOrderEvents(s)
	return s
}

func TestEventSerializer_EncodeDecode(t *testing.T) {
	s := newOrderSerializer()
	o := paidOrder()
	event := order.NewOrderPaidEvent(o)

	data, err := s.Encode(event)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, event.EventID(), env.EventID)
	assert.Equal(t, order.EventTypeOrderPaid, env.EventType)
	assert.Equal(t, o.ID, env.OrderID)
	assert.WithinDuration(t, event.OccurredAt(), env.OccurredAt, time.Millisecond)

	decoded, err := s.Decode(data)
	require.NoError(t, err)
	paid, ok := decoded.(*order.OrderPaidEvent)
	require.True(t, ok)
	assert.Equal(t, o.ID, paid.OrderID)
	assert.Equal(t, "pi_123", paid.PaymentIntentID)
	assert.True(t, o.TotalAmount.Equal(paid.TotalAmount))
}

func TestEventSerializer_DecodeUnknownType(t *testing.T) {
	s := NewEventSerializer()
	data, err := s.Encode(newTestEvent("Mystery"))
	require.NoError(t, err)

	_, err = s.Decode(data)
	assert.ErrorContains(t, err, "unknown event type: Mystery")

	_, err = s.Decode([]byte("not json"))
	assert.ErrorContains(t, err, "failed to unmarshal envelope")
}

func TestKafkaForwarder_EventTypes(t *testing.T) {
	f := NewKafkaForwarder(&fakeProducer{}, "storefront.orders", newOrderSerializer(), nil)

	assert.Equal(t, []string{
		order.EventTypeOrderPaid,
		order.EventTypeOrderPaymentFailed,
		order.EventTypeOrderPlaced,
		order.EventTypeOrderStatusChanged,
	}, f.EventTypes())
}

func TestKafkaForwarder_Handle(t *testing.T) {
	producer := &fakeProducer{}
	f := NewKafkaForwarder(producer, "storefront.orders", newOrderSerializer(), zap.NewNop())
	o := paidOrder()

	require.NoError(t, f.Handle(context.Background(), order.NewOrderPaidEvent(o)))

	require.Len(t, producer.records, 1)
	rec := producer.records[0]
	assert.Equal(t, "storefront.orders", rec.Topic)
	assert.Equal(t, o.ID.String(), string(rec.Key))
	require.Len(t, rec.Headers, 1)
	assert.Equal(t, order.EventTypeOrderPaid, string(rec.Headers[0].Value))

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Value, &env))
	assert.Equal(t, o.ID, env.OrderID)

	f.Close()
	assert.True(t, producer.closed)
}

func TestKafkaForwarder_ProduceFailure(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker not available")}
	f := NewKafkaForwarder(producer, "storefront.orders", newOrderSerializer(), nil)

	err := f.Handle(context.Background(), order.NewOrderPaidEvent(paidOrder()))
	assert.ErrorContains(t, err, "failed to produce OrderPaid to storefront.orders")
	assert.ErrorContains(t, err, "broker not available")
}

func TestKafkaForwarder_OnBus(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker not available")}
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(NewKafkaForwarder(producer, "storefront.orders", newOrderSerializer(), nil))

	assert.NoError(t, bus.Publish(context.Background(), order.NewOrderPaidEvent(paidOrder())),
		"produce failures are logged by the bus, not returned to the publisher")
}
