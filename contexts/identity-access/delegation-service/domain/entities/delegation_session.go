package entities

import "time"

// SessionCloser identifies what closed an impersonation overlay.
type SessionCloser string

const (
	ClosedByAgent  SessionCloser = "agent"
	ClosedBySystem SessionCloser = "system"
)

// DelegationSession is one impersonation overlay: the agent's effective acting
// identity becomes the client while the underlying login stays the agent.
// Invariant: at most one session with a nil EndedAt per agent profile.
type DelegationSession struct {
	SessionID         string        `json:"session_id"`
	AgentProfileID    string        `json:"agent_profile_id"`
	AgentPrincipalID  string        `json:"agent_principal_id"`
	ClientPrincipalID string        `json:"client_principal_id"`
	AgentClientID     string        `json:"agent_client_id"`
	Reason            string        `json:"reason,omitempty"`
	StartedAt         time.Time     `json:"started_at"`
	EndedAt           *time.Time    `json:"ended_at,omitempty"`
	ClosedBy          SessionCloser `json:"closed_by,omitempty"`
}

// IsOpen reports whether the overlay is still active.
func (s DelegationSession) IsOpen() bool {
	return s.EndedAt == nil
}
