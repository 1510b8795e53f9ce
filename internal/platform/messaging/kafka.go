package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	kafka "github.com/segmentio/kafka-go"
)

// Writer is the subset of kafka.Writer the producer needs. Keeping it
// narrow lets tests inject an in-process writer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON-encoded notification events to a single topic.
// Delegation state never waits on a publish; the outbox relay retries
// pending rows, so failures here only surface in logs and relay errors.
type Producer struct {
	writer Writer
	topic  string
	logger *slog.Logger
}

func NewProducer(brokers []string, topic string, logger *slog.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{writer: writer, topic: topic, logger: logger}
}

// NewProducerWithWriter allows injecting a test writer.
func NewProducerWithWriter(writer Writer, topic string, logger *slog.Logger) *Producer {
	return &Producer{writer: writer, topic: topic, logger: logger}
}

func (p *Producer) Publish(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}); err != nil {
		if p.logger != nil {
			p.logger.Error("kafka write failed",
				"event", "kafka_publish_failed",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", p.topic,
				"key", key,
				"error", err.Error(),
			)
		}
		return err
	}

	if p.logger != nil {
		p.logger.Info("event published",
			"event", "kafka_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", p.topic,
			"key", key,
		)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
