package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	kafka "github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestProducerPublishesJSON(t *testing.T) {
	writer := &fakeWriter{}
	producer := NewProducerWithWriter(writer, "flowsmartly.notifications", nil)

	if err := producer.Publish(context.Background(), "session-1", map[string]string{"event_type": "delegation.started"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(writer.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(writer.messages))
	}
	if string(writer.messages[0].Key) != "session-1" {
		t.Fatalf("unexpected key %q", writer.messages[0].Key)
	}
	var payload map[string]string
	if err := json.Unmarshal(writer.messages[0].Value, &payload); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if payload["event_type"] != "delegation.started" {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestProducerReturnsWriterError(t *testing.T) {
	wantErr := errors.New("broker unreachable")
	producer := NewProducerWithWriter(&fakeWriter{err: wantErr}, "flowsmartly.notifications", nil)

	if err := producer.Publish(context.Background(), "k", "v"); !errors.Is(err, wantErr) {
		t.Fatalf("expected writer error, got %v", err)
	}
}
