package httpadapter

import (
	"context"
	"log/slog"

	application "flowsmartly/contexts/identity-access/session-service/application"
	"flowsmartly/contexts/identity-access/session-service/application/commands"
	httptransport "flowsmartly/contexts/identity-access/session-service/transport/http"
)

// Handler maps HTTP DTOs to application commands.
type Handler struct {
	Login  commands.LoginUseCase
	Revoke commands.RevokeSessionUseCase
	Logger *slog.Logger
}

// LoginHandler authenticates and issues a session token.
func (h Handler) LoginHandler(
	ctx context.Context,
	userAgent string,
	remoteAddr string,
	request httptransport.LoginRequest,
) (httptransport.LoginResponse, error) {
	logger := application.ResolveLogger(h.Logger)

	result, err := h.Login.Execute(ctx, commands.LoginCommand{
		Email:     request.Email,
		Password:  request.Password,
		UserAgent: userAgent,
		IPAddress: remoteAddr,
	})
	if err != nil {
		logger.Warn("http login failed",
			"event", "session_http_login_failed",
			"module", "identity-access/session-service",
			"layer", "transport",
			"error", err.Error(),
		)
		return httptransport.LoginResponse{}, err
	}
	return httptransport.LoginResponse{
		Token:       result.Token,
		SessionID:   result.Session.SessionID,
		PrincipalID: result.PrincipalID,
		ExpiresAt:   result.Session.ExpiresAt,
	}, nil
}

// LogoutHandler revokes the caller's session. Idempotent.
func (h Handler) LogoutHandler(ctx context.Context, token string) (httptransport.LogoutResponse, error) {
	result, err := h.Revoke.Execute(ctx, commands.RevokeSessionCommand{Token: token})
	if err != nil {
		return httptransport.LogoutResponse{}, err
	}
	return httptransport.LogoutResponse{Revoked: result.Revoked}, nil
}
