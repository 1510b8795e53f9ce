package entities

import "time"

// Audit action tags recorded by the core. Entries are immutable once written.
const (
	AuditImpersonationStarted   = "impersonation_started"
	AuditImpersonationEnded     = "impersonation_ended"
	AuditRestrictedDenied       = "restricted_action_denied"
	AuditAgentApproved          = "agent_approved"
	AuditAgentRejected          = "agent_rejected"
	AuditAgentSuspended         = "agent_suspended"
	AuditRelationshipTerminated = "relationship_terminated"
)

// AuditEntry is one append-only record. The core never mutates or deletes
// entries after the write commits.
type AuditEntry struct {
	EntryID     string    `json:"entry_id"`
	ActorID     string    `json:"actor_id"`
	Action      string    `json:"action"`
	TargetType  string    `json:"target_type"`
	TargetID    string    `json:"target_id"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
