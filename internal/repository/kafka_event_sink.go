package repository

import (
	"context"

	domrepo "MicroTrade/internal/domain/repository"
	pkgkafka "MicroTrade/pkg/kafka"
)

// KafkaEventSink publishes engine lifecycle events. The producer is run
// async so a slow broker never stalls a decision cycle.
type KafkaEventSink struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventSink(producer *pkgkafka.Producer, topic string) domrepo.EventSink {
	return &KafkaEventSink{producer: producer, topic: topic}
}

func (s *KafkaEventSink) Emit(ctx context.Context, ev domrepo.Event) error {
	key := []byte(ev.Symbol)
	if len(key) == 0 {
		key = []byte(ev.Kind)
	}
	return s.producer.Publish(ctx, s.topic, key, ev)
}

func (s *KafkaEventSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}

// NopEventSink discards events; used when Kafka is disabled.
type NopEventSink struct{}

func (NopEventSink) Emit(ctx context.Context, ev domrepo.Event) error { return nil }
func (NopEventSink) Close() error                                     { return nil }
