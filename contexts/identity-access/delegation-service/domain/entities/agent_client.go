package entities

import "time"

// AgentClientStatus is the lifecycle state of a delegation contract.
type AgentClientStatus string

const (
	AgentClientPending    AgentClientStatus = "pending"
	AgentClientActive     AgentClientStatus = "active"
	AgentClientPaused     AgentClientStatus = "paused"
	AgentClientTerminated AgentClientStatus = "terminated"
)

// Terminator identifies which side ended an agent-client contract.
type Terminator string

const (
	TerminatedByAgent  Terminator = "agent"
	TerminatedByClient Terminator = "client"
	TerminatedBySystem Terminator = "system"
)

// AgentClient is the delegation contract between one agent profile and one
// client principal. Termination is terminal; re-engagement requires a new row.
type AgentClient struct {
	AgentClientID     string            `json:"agent_client_id"`
	AgentProfileID    string            `json:"agent_profile_id"`
	ClientPrincipalID string            `json:"client_principal_id"`
	Status            AgentClientStatus `json:"status"`
	StartedAt         time.Time         `json:"started_at"`
	EndedAt           *time.Time        `json:"ended_at,omitempty"`
	TerminatedBy      Terminator        `json:"terminated_by,omitempty"`
	TerminationReason string            `json:"termination_reason,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// IsDelegatable reports whether an impersonation overlay may start on this
// contract.
func (c AgentClient) IsDelegatable() bool {
	return c.Status == AgentClientActive
}
