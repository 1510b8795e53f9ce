package httptransport

import "time"

// StartDelegationRequest opens an impersonation overlay on one client contract.
type StartDelegationRequest struct {
	AgentClientID string `json:"agent_client_id"`
	Reason        string `json:"reason,omitempty"`
}

// StartDelegationResponse reports the new session. RedirectTo tells the web
// client which dashboard to load after the overlay is applied.
type StartDelegationResponse struct {
	SessionID         string    `json:"session_id"`
	AgentClientID     string    `json:"agent_client_id"`
	ClientPrincipalID string    `json:"client_principal_id"`
	StartedAt         time.Time `json:"started_at"`
	ReplacedSession   bool      `json:"replaced_session"`
	AuditLogID        string    `json:"audit_log_id"`
	RedirectTo        string    `json:"redirect_to"`
}

type EndDelegationRequest struct {
	Reason string `json:"reason,omitempty"`
}

// EndDelegationResponse reports Ended=false when no overlay was open; the
// endpoint is idempotent.
type EndDelegationResponse struct {
	Ended      bool       `json:"ended"`
	SessionID  string     `json:"session_id,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	AuditLogID string     `json:"audit_log_id,omitempty"`
	RedirectTo string     `json:"redirect_to"`
}

// DelegationStatusResponse is the read model for the status endpoint.
type DelegationStatusResponse struct {
	IsImpersonating   bool       `json:"is_impersonating"`
	ClientPrincipalID string     `json:"client_principal_id,omitempty"`
	AgentProfileID    string     `json:"agent_profile_id,omitempty"`
	AgentClientID     string     `json:"agent_client_id,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
}

type ApplyAgentResponse struct {
	ProfileID   string    `json:"profile_id"`
	PrincipalID string    `json:"principal_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type ReviewAgentRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

type AgentProfileDTO struct {
	ProfileID       string     `json:"profile_id"`
	PrincipalID     string     `json:"principal_id"`
	Status          string     `json:"status"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type SuspendAgentRequest struct {
	Reason string `json:"reason,omitempty"`
}

// SuspendAgentResponse reports the cascade outcome alongside the profile.
type SuspendAgentResponse struct {
	Profile       AgentProfileDTO `json:"profile"`
	SessionClosed bool            `json:"session_closed"`
	AuditLogID    string          `json:"audit_log_id"`
}

type EngageAgentRequest struct {
	AgentProfileID string `json:"agent_profile_id"`
	ActivateNow    bool   `json:"activate_now,omitempty"`
}

type TerminateRelationshipRequest struct {
	Reason string `json:"reason,omitempty"`
}

type AgentClientDTO struct {
	AgentClientID     string     `json:"agent_client_id"`
	AgentProfileID    string     `json:"agent_profile_id"`
	ClientPrincipalID string     `json:"client_principal_id"`
	Status            string     `json:"status"`
	StartedAt         time.Time  `json:"started_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	TerminatedBy      string     `json:"terminated_by,omitempty"`
	TerminationReason string     `json:"termination_reason,omitempty"`
}

type AuditEntryDTO struct {
	EntryID     string    `json:"entry_id"`
	ActorID     string    `json:"actor_id"`
	Action      string    `json:"action"`
	TargetType  string    `json:"target_type"`
	TargetID    string    `json:"target_id"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ListAuditResponse struct {
	Entries []AuditEntryDTO `json:"entries"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}
