package memory

import (
	"context"

	"flowsmartly/contexts/identity-access/delegation-service/ports"
)

// NopPublisher drops notifications. Used by in-memory wiring and tests that
// do not care about the notification bus.
type NopPublisher struct{}

func (NopPublisher) Publish(_ context.Context, _ string, _ any) error {
	return nil
}

var _ ports.NotificationPublisher = NopPublisher{}
