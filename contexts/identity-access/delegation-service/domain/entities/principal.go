package entities

import "time"

// PlanTierAdmin marks platform operators. Agent profile reviews and
// suspensions are limited to this tier.
const PlanTierAdmin = "admin"

// Principal is a human account. Soft-deleted principals keep their row but can
// no longer authenticate or be impersonated.
type Principal struct {
	PrincipalID  string     `json:"principal_id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	PlanTier     string     `json:"plan_tier"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// IsDisabled reports whether the account has been soft-deleted.
func (p Principal) IsDisabled() bool {
	return p.DeletedAt != nil
}

// IsAdmin reports whether the account may perform administrative actions.
func (p Principal) IsAdmin() bool {
	return p.PlanTier == PlanTierAdmin && !p.IsDisabled()
}
