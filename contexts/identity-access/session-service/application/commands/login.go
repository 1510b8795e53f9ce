package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "flowsmartly/contexts/identity-access/session-service/application"
	"flowsmartly/contexts/identity-access/session-service/domain/entities"
	domainerrors "flowsmartly/contexts/identity-access/session-service/domain/errors"
	"flowsmartly/contexts/identity-access/session-service/ports"
)

// LoginCommand authenticates one email/password pair.
type LoginCommand struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// LoginResult carries the signed credential and its session row.
type LoginResult struct {
	Token       string           `json:"token"`
	Session     entities.Session `json:"session"`
	PrincipalID string           `json:"principal_id"`
}

// LoginUseCase verifies credentials and issues a session. Unknown email and
// wrong password produce the same error.
type LoginUseCase struct {
	Directory   ports.AccountDirectory
	Sessions    ports.SessionRepository
	Hasher      ports.PasswordHasher
	Signer      ports.TokenSigner
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	SessionTTL  time.Duration
	Logger      *slog.Logger
}

func (u LoginUseCase) Execute(ctx context.Context, cmd LoginCommand) (LoginResult, error) {
	logger := application.ResolveLogger(u.Logger)

	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if email == "" || cmd.Password == "" {
		return LoginResult{}, domainerrors.ErrInvalidCredential
	}

	account, found, err := u.Directory.GetAccountByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", domainerrors.ErrSessionUnavailable, err)
	}
	if !found {
		return LoginResult{}, domainerrors.ErrInvalidCredential
	}
	if err := u.Hasher.Compare(account.PasswordHash, cmd.Password); err != nil {
		logger.Warn("login rejected, bad password",
			"event", "session_login_rejected",
			"module", "identity-access/session-service",
			"layer", "application",
			"account_id", account.AccountID,
		)
		return LoginResult{}, domainerrors.ErrInvalidCredential
	}
	if account.IsDisabled() {
		return LoginResult{}, domainerrors.ErrAccountDisabled
	}

	sessionID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", domainerrors.ErrSessionUnavailable, err)
	}
	now := u.Clock.Now().UTC()
	ttl := u.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	expiresAt := now.Add(ttl)

	session, err := u.Sessions.CreateSession(ctx, ports.CreateSessionInput{
		SessionID:   sessionID,
		PrincipalID: account.AccountID,
		IssuedAt:    now,
		ExpiresAt:   expiresAt,
		UserAgent:   cmd.UserAgent,
		IPAddress:   cmd.IPAddress,
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", domainerrors.ErrSessionUnavailable, err)
	}

	token, err := u.Signer.Sign(session.SessionID, expiresAt)
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", domainerrors.ErrSessionUnavailable, err)
	}

	logger.Info("login succeeded",
		"event", "session_login_succeeded",
		"module", "identity-access/session-service",
		"layer", "application",
		"account_id", account.AccountID,
		"session_id", session.SessionID,
	)
	return LoginResult{
		Token:       token,
		Session:     session,
		PrincipalID: account.AccountID,
	}, nil
}
