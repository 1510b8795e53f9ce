package ports

import (
	"context"
	"time"

	"flowsmartly/contexts/identity-access/session-service/domain/entities"
)

// Clock abstracts current time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID generation for session rows.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// CreateSessionInput persists one issued login.
type CreateSessionInput struct {
	SessionID   string
	PrincipalID string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	UserAgent   string
	IPAddress   string
}

// SessionRepository is the session lifecycle store. RevokeSession on an
// already-revoked session is a no-op.
type SessionRepository interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (entities.Session, error)
	GetSession(ctx context.Context, sessionID string) (entities.Session, bool, error)
	RevokeSession(ctx context.Context, sessionID string, revokedAt time.Time) error
}

// AccountDirectory exposes the account projection used for authentication.
type AccountDirectory interface {
	GetAccountByEmail(ctx context.Context, email string) (entities.Account, bool, error)
	GetAccount(ctx context.Context, accountID string) (entities.Account, bool, error)
}

// PasswordHasher abstracts credential hashing so tests can swap the cost.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error
}

// TokenSigner mints and verifies the opaque bearer credential handed to web
// clients. The credential carries only the session id; everything else lives
// in the session store.
type TokenSigner interface {
	Sign(sessionID string, expiresAt time.Time) (string, error)
	Verify(token string) (sessionID string, err error)
}
