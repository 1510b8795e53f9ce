package entities

import "time"

// Session is one issued login. Tokens reference sessions by id so a revoked
// session invalidates its token immediately, without waiting for expiry.
type Session struct {
	SessionID   string     `json:"session_id"`
	PrincipalID string     `json:"principal_id"`
	IssuedAt    time.Time  `json:"issued_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	UserAgent   string     `json:"user_agent,omitempty"`
	IPAddress   string     `json:"ip_address,omitempty"`
}

// IsActive reports whether the session is neither revoked nor expired at the
// given instant.
func (s Session) IsActive(now time.Time) bool {
	if s.RevokedAt != nil {
		return false
	}
	return now.Before(s.ExpiresAt)
}
