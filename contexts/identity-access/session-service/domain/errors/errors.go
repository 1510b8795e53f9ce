// Package errors defines session-service sentinel errors shared across
// application and transport layers.
package errors

import "errors"

var (
	// ErrInvalidCredential covers both unknown email and wrong password;
	// login responses never distinguish the two.
	ErrInvalidCredential = errors.New("invalid email or password")

	// ErrAccountDisabled rejects logins and token resolution for accounts
	// that were soft-deleted or administratively disabled.
	ErrAccountDisabled = errors.New("account is disabled")

	// ErrInvalidToken marks credentials that fail signature or shape checks.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrSessionNotFound marks tokens whose session row no longer exists.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired marks sessions past their expiry instant.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionRevoked marks sessions explicitly logged out or revoked.
	ErrSessionRevoked = errors.New("session revoked")

	// ErrSessionUnavailable wraps session store failures; transport maps it
	// to 503 and callers treat it as deny.
	ErrSessionUnavailable = errors.New("session store unavailable")
)
