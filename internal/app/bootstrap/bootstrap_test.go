package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"flowsmartly/contexts/identity-access/delegation-service/application/workers"
	"flowsmartly/contexts/identity-access/delegation-service/ports"
)

type staticOutbox struct {
	rows []ports.OutboxMessage
}

func (s staticOutbox) ListPendingOutbox(_ context.Context, _ int) ([]ports.OutboxMessage, error) {
	return s.rows, nil
}

func (s staticOutbox) MarkOutboxPublished(_ context.Context, _ string, _ time.Time) error {
	return nil
}

type failingPublisher struct {
	mu    sync.Mutex
	calls int
}

func (p *failingPublisher) Publish(_ context.Context, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return errors.New("broker unreachable")
}

func (p *failingPublisher) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestWorkerRunRetriesAfterRelayFailure(t *testing.T) {
	publisher := &failingPublisher{}
	app := &WorkerApp{
		relay: workers.NotificationRelay{
			Outbox: staticOutbox{rows: []ports.OutboxMessage{{
				OutboxID:  "outbox-1",
				EventType: "delegation.started",
				Payload:   []byte(`{}`),
				CreatedAt: time.Now().UTC(),
			}}},
			Publisher: publisher,
			BatchSize: 1,
			Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
		relayEnabled: true,
		pollInterval: 5 * time.Millisecond,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		t.Fatalf("worker must survive publish failures, got %v", err)
	}
	if publisher.callCount() < 2 {
		t.Fatalf("expected the relay to retry on the next tick, got %d attempts", publisher.callCount())
	}
}
