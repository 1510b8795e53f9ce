package httpserver

import (
	"errors"
	"net/http"

	sessionerrors "flowsmartly/contexts/identity-access/session-service/domain/errors"
	sessionhttp "flowsmartly/contexts/identity-access/session-service/transport/http"
)

func writeSessionDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessionerrors.ErrInvalidCredential),
		errors.Is(err, sessionerrors.ErrInvalidToken),
		errors.Is(err, sessionerrors.ErrSessionNotFound),
		errors.Is(err, sessionerrors.ErrSessionExpired),
		errors.Is(err, sessionerrors.ErrSessionRevoked):
		writeFailure(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, sessionerrors.ErrAccountDisabled):
		writeFailure(w, http.StatusForbidden, err.Error())
	case errors.Is(err, sessionerrors.ErrSessionUnavailable):
		writeFailure(w, http.StatusServiceUnavailable, "session service unavailable")
	default:
		writeFailure(w, http.StatusInternalServerError, "internal server error")
	}
}

// isSessionError reports whether an error belongs to the authentication
// taxonomy; other route families use it to keep 401 vs 403 distinct.
func isSessionError(err error) bool {
	return errors.Is(err, sessionerrors.ErrInvalidCredential) ||
		errors.Is(err, sessionerrors.ErrInvalidToken) ||
		errors.Is(err, sessionerrors.ErrSessionNotFound) ||
		errors.Is(err, sessionerrors.ErrSessionExpired) ||
		errors.Is(err, sessionerrors.ErrSessionRevoked) ||
		errors.Is(err, sessionerrors.ErrAccountDisabled) ||
		errors.Is(err, sessionerrors.ErrSessionUnavailable)
}

// requireSessionPrincipal resolves the bearer credential to the login
// principal. Writes the 401/503 response itself on failure.
func (s *Server) requireSessionPrincipal(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := bearerToken(r)
	if token == "" {
		writeFailure(w, http.StatusUnauthorized, "Authorization bearer token is required")
		return "", false
	}
	principalID, err := s.session.Resolver.ResolvePrincipal(r.Context(), token)
	if err != nil {
		writeSessionDomainError(w, err)
		return "", false
	}
	return principalID, true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req sessionhttp.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.session.Handler.LoginHandler(r.Context(), r.UserAgent(), resolveClientIP(r), req)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeFailure(w, http.StatusUnauthorized, "Authorization bearer token is required")
		return
	}

	resp, err := s.session.Handler.LogoutHandler(r.Context(), token)
	if err != nil {
		writeSessionDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}
