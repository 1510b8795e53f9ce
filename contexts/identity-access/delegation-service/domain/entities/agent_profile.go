package entities

import "time"

// AgentProfileStatus is the approval state of an agent application.
type AgentProfileStatus string

const (
	AgentProfilePending   AgentProfileStatus = "pending"
	AgentProfileApproved  AgentProfileStatus = "approved"
	AgentProfileRejected  AgentProfileStatus = "rejected"
	AgentProfileSuspended AgentProfileStatus = "suspended"
)

// AgentProfile is the one-to-one agent application record for a principal.
// Only an approved profile may initiate delegation.
type AgentProfile struct {
	ProfileID       string             `json:"profile_id"`
	PrincipalID     string             `json:"principal_id"`
	Status          AgentProfileStatus `json:"status"`
	ApprovedAt      *time.Time         `json:"approved_at,omitempty"`
	RejectionReason string             `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// CanDelegate reports whether the profile may start an impersonation overlay.
func (p AgentProfile) CanDelegate() bool {
	return p.Status == AgentProfileApproved
}
