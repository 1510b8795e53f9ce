package entities

import "time"

// Account is the session-service projection of a FlowSmartly user: just
// enough to authenticate and to refuse disabled logins.
type Account struct {
	AccountID    string     `json:"account_id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	PlanTier     string     `json:"plan_tier,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DisabledAt   *time.Time `json:"disabled_at,omitempty"`
}

// IsDisabled reports whether the account has been soft-deleted or suspended.
func (a Account) IsDisabled() bool {
	return a.DisabledAt != nil
}
