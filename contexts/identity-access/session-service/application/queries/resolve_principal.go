package queries

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	domainerrors "flowsmartly/contexts/identity-access/session-service/domain/errors"
	"flowsmartly/contexts/identity-access/session-service/ports"
)

// ResolvePrincipalUseCase maps a bearer credential to the principal behind
// it. Revoked or expired sessions and disabled accounts resolve to errors,
// never to a principal.
type ResolvePrincipalUseCase struct {
	Sessions  ports.SessionRepository
	Directory ports.AccountDirectory
	Signer    ports.TokenSigner
	Clock     ports.Clock
	Logger    *slog.Logger
}

func (u ResolvePrincipalUseCase) Execute(ctx context.Context, credential string) (string, error) {
	if strings.TrimSpace(credential) == "" {
		return "", domainerrors.ErrInvalidToken
	}

	sessionID, err := u.Signer.Verify(credential)
	if err != nil {
		return "", err
	}

	session, found, err := u.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainerrors.ErrSessionUnavailable, err)
	}
	if !found {
		return "", domainerrors.ErrSessionNotFound
	}
	if session.RevokedAt != nil {
		return "", domainerrors.ErrSessionRevoked
	}
	if !session.IsActive(u.Clock.Now().UTC()) {
		return "", domainerrors.ErrSessionExpired
	}

	account, found, err := u.Directory.GetAccount(ctx, session.PrincipalID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainerrors.ErrSessionUnavailable, err)
	}
	if !found || account.IsDisabled() {
		return "", domainerrors.ErrAccountDisabled
	}
	return session.PrincipalID, nil
}
