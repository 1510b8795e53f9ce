package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	application "flowsmartly/contexts/identity-access/session-service/application"
	domainerrors "flowsmartly/contexts/identity-access/session-service/domain/errors"
	"flowsmartly/contexts/identity-access/session-service/ports"
)

// RevokeSessionCommand logs out one credential.
type RevokeSessionCommand struct {
	Token string
}

// RevokeSessionResult reports whether a live session was actually revoked.
type RevokeSessionResult struct {
	Revoked   bool   `json:"revoked"`
	SessionID string `json:"session_id,omitempty"`
}

// RevokeSessionUseCase is idempotent: revoking an already-dead session is a
// no-op success so logout never fails for the user.
type RevokeSessionUseCase struct {
	Sessions ports.SessionRepository
	Signer   ports.TokenSigner
	Clock    ports.Clock
	Logger   *slog.Logger
}

func (u RevokeSessionUseCase) Execute(ctx context.Context, cmd RevokeSessionCommand) (RevokeSessionResult, error) {
	logger := application.ResolveLogger(u.Logger)

	sessionID, err := u.Signer.Verify(cmd.Token)
	if err != nil {
		if errors.Is(err, domainerrors.ErrSessionExpired) {
			return RevokeSessionResult{}, nil
		}
		return RevokeSessionResult{}, domainerrors.ErrInvalidToken
	}

	session, found, err := u.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return RevokeSessionResult{}, fmt.Errorf("%w: %v", domainerrors.ErrSessionUnavailable, err)
	}
	if !found || session.RevokedAt != nil {
		return RevokeSessionResult{SessionID: sessionID}, nil
	}

	if err := u.Sessions.RevokeSession(ctx, sessionID, u.Clock.Now().UTC()); err != nil {
		return RevokeSessionResult{}, fmt.Errorf("%w: %v", domainerrors.ErrSessionUnavailable, err)
	}

	logger.Info("session revoked",
		"event", "session_revoked",
		"module", "identity-access/session-service",
		"layer", "application",
		"session_id", sessionID,
	)
	return RevokeSessionResult{Revoked: true, SessionID: sessionID}, nil
}
