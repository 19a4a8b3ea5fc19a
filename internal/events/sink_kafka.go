package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"attest/internal/platform/kafka/producer"
	"attest/pkg/platform/circuit"
)

// Producer is the subset of the Kafka producer the sink uses.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaSink publishes events to a topic keyed by credential id, so every
// event for one credential lands on the same partition in order. A breaker
// stops hammering an unavailable cluster.
type KafkaSink struct {
	producer Producer
	topic    string
	breaker  *circuit.Breaker
}

// NewKafkaSink constructs the sink. breaker may be nil.
func NewKafkaSink(p Producer, topic string, breaker *circuit.Breaker) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic, breaker: breaker}
}

func (s *KafkaSink) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := &producer.Message{
		Topic: s.topic,
		Key:   []byte(event.CredentialID.String()),
		Value: payload,
		Headers: map[string]string{
			"event_type": string(event.Type),
		},
	}
	if event.RequestID != "" {
		msg.Headers["request_id"] = event.RequestID
	}

	produce := func() error { return s.producer.Produce(ctx, msg) }
	if s.breaker == nil {
		return produce()
	}
	if err := s.breaker.Do(produce); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.Type, s.topic, err)
	}
	return nil
}

// LogSink writes events to the structured log. Used when no broker is
// configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "credential event",
		"event_type", string(event.Type),
		"credential_id", event.CredentialID.String(),
		"recipient_id", event.RecipientID.String(),
	)
	return nil
}
