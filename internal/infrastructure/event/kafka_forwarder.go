package event

import (
	"context"
	"fmt"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// Producer is the part of *kgo.Client the forwarder needs
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaForwarder publishes order lifecycle events to a Kafka topic. Records
// are keyed by order id so one order's events stay on one partition.
type KafkaForwarder struct {
	producer   Producer
	topic      string
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewKafkaClient dials the configured brokers
func NewKafkaClient(cfg config.KafkaConfig) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return client, nil
}

// NewKafkaForwarder creates a forwarder for the serializer's registered types
func NewKafkaForwarder(producer Producer, topic string, serializer *EventSerializer, logger *zap.Logger) *KafkaForwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaForwarder{
		producer:   producer,
		topic:      topic,
		serializer: serializer,
		logger:     logger,
	}
}

// EventTypes returns the registered order event types
func (f *KafkaForwarder) EventTypes() []string {
	return f.serializer.RegisteredTypes()
}

// Handle produces the event and waits for the broker to acknowledge it
func (f *KafkaForwarder) Handle(ctx context.Context, event shared.DomainEvent) error {
	value, err := f.serializer.Encode(event)
	if err != nil {
		return err
	}

	record := &kgo.Record{
		Topic: f.topic,
		Key:   []byte(event.AggregateID().String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.EventType())},
		},
	}
	if err := f.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce %s to %s: %w", event.EventType(), f.topic, err)
	}

	f.logger.Debug("Event forwarded to Kafka",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("order_id", event.AggregateID().String()),
	)
	return nil
}

// Close flushes and closes the producer
func (f *KafkaForwarder) Close() {
	f.producer.Close()
}

var _ shared.EventHandler = (*KafkaForwarder)(nil)
