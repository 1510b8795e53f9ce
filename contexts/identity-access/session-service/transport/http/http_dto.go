package httptransport

import "time"

// LoginRequest authenticates one email/password pair.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer credential for subsequent requests.
type LoginResponse struct {
	Token       string    `json:"token"`
	SessionID   string    `json:"session_id"`
	PrincipalID string    `json:"principal_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LogoutResponse reports whether a live session was revoked; logging out an
// already-dead session still succeeds.
type LogoutResponse struct {
	Revoked bool `json:"revoked"`
}
