package ports

import (
	"context"
	"time"

	"flowsmartly/contexts/identity-access/delegation-service/domain/entities"
)

// Clock abstracts current time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID generation for sessions/audit/outbox rows.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// SessionResolver maps a bearer credential to a principal id. Implemented by
// the session-service module and wired in at bootstrap; delegation code never
// parses credentials itself.
type SessionResolver interface {
	ResolvePrincipal(ctx context.Context, credential string) (string, error)
}

// CreateAgentProfileInput is persisted with its audit context.
type CreateAgentProfileInput struct {
	ProfileID   string
	PrincipalID string
	CreatedAt   time.Time
}

// ReviewAgentInput captures an administrative approve/reject decision.
type ReviewAgentInput struct {
	AuditLogID string
	OutboxID   string
	ProfileID  string
	AdminID    string
	Approve    bool
	Reason     string
	ReviewedAt time.Time
}

// SuspendAgentInput is applied atomically: the status write and the forced
// close of any open delegation session commit together.
type SuspendAgentInput struct {
	AuditLogID        string
	SessionAuditLogID string
	OutboxID          string
	ProfileID         string
	AdminID           string
	Reason            string
	SuspendedAt       time.Time
}

// SuspendAgentResult reports whether an open session was force-closed.
type SuspendAgentResult struct {
	Profile       entities.AgentProfile
	ClosedSession *entities.DelegationSession
	AuditLogID    string
}

// CreateAgentClientInput creates a delegation contract.
type CreateAgentClientInput struct {
	AgentClientID     string
	AgentProfileID    string
	ClientPrincipalID string
	Active            bool
	CreatedAt         time.Time
}

// TerminateAgentClientInput records who ended the contract and why.
type TerminateAgentClientInput struct {
	AuditLogID    string
	OutboxID      string
	AgentClientID string
	TerminatedBy  entities.Terminator
	ActorID       string
	Reason        string
	TerminatedAt  time.Time
}

// StartDelegationInput opens an impersonation overlay. The repository must
// close any existing open session for the agent profile before inserting the
// new one, inside one transaction with the audit and outbox writes.
type StartDelegationInput struct {
	SessionID         string
	AuditLogID        string
	OutboxID          string
	AgentProfileID    string
	AgentPrincipalID  string
	ClientPrincipalID string
	AgentClientID     string
	Reason            string
	StartedAt         time.Time
}

// StartDelegationResult includes the session closed on behalf of the caller,
// if one was open.
type StartDelegationResult struct {
	Session       entities.DelegationSession
	ClosedSession *entities.DelegationSession
	AuditLogID    string
}

// EndDelegationInput closes whatever session is open for the agent profile.
type EndDelegationInput struct {
	AuditLogID     string
	OutboxID       string
	AgentProfileID string
	ClosedBy       entities.SessionCloser
	Reason         string
	EndedAt        time.Time
}

// EndDelegationResult reports Ended=false when no session was open; callers
// treat that as a no-op success.
type EndDelegationResult struct {
	Session    entities.DelegationSession
	Ended      bool
	AuditLogID string
}

// Repository is the write/read boundary for the delegation domain state.
// Mutations that pair a state write with audit/outbox rows are atomic: a
// failed audit write aborts the whole operation.
type Repository interface {
	GetPrincipal(ctx context.Context, principalID string) (entities.Principal, error)
	CreatePrincipal(ctx context.Context, principal entities.Principal) error

	GetAgentProfile(ctx context.Context, profileID string) (entities.AgentProfile, bool, error)
	GetAgentProfileByPrincipal(ctx context.Context, principalID string) (entities.AgentProfile, bool, error)
	CreateAgentProfile(ctx context.Context, input CreateAgentProfileInput) (entities.AgentProfile, error)
	ReviewAgentProfile(ctx context.Context, input ReviewAgentInput) (entities.AgentProfile, error)
	SuspendAgent(ctx context.Context, input SuspendAgentInput) (SuspendAgentResult, error)

	GetAgentClient(ctx context.Context, agentClientID string) (entities.AgentClient, bool, error)
	CreateAgentClient(ctx context.Context, input CreateAgentClientInput) (entities.AgentClient, error)
	ActivateAgentClient(ctx context.Context, agentClientID string, activatedAt time.Time) (entities.AgentClient, error)
	TerminateAgentClient(ctx context.Context, input TerminateAgentClientInput) (entities.AgentClient, error)

	StartDelegation(ctx context.Context, input StartDelegationInput) (StartDelegationResult, error)
	EndDelegation(ctx context.Context, input EndDelegationInput) (EndDelegationResult, error)
	GetOpenSession(ctx context.Context, agentProfileID string) (entities.DelegationSession, bool, error)
}

// AuditFilter narrows audit queries. Zero values are ignored.
type AuditFilter struct {
	ActorID  string
	TargetID string
	Action   string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// AuditLog is the append-only record boundary. AppendAudit never fails
// silently; QueryAudit is read-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry entities.AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]entities.AuditEntry, error)
}

// OutboxMessage represents a pending notification relay message.
type OutboxMessage struct {
	OutboxID  string
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

// OutboxRepository supports worker relay polling and acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// NotificationPublisher emits fire-and-forget notification events. Failures
// never roll back delegation state; the relay retries pending rows.
type NotificationPublisher interface {
	Publish(ctx context.Context, key string, value any) error
}
