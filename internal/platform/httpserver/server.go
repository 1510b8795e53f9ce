package httpserver

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	wallet "flowsmartly/contexts/finance-core/wallet-service"
	delegation "flowsmartly/contexts/identity-access/delegation-service"
	session "flowsmartly/contexts/identity-access/session-service"

	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	session    session.Module
	delegation delegation.Module
	wallet     wallet.Module
}

func New(
	sessionModule session.Module,
	delegationModule delegation.Module,
	walletModule wallet.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		session:    sessionModule,
		delegation: delegationModule,
		wallet:     walletModule,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/v1/auth/logout", s.handleLogout)

	s.mux.HandleFunc("POST /api/v1/delegation/start", s.handleDelegationStart)
	s.mux.HandleFunc("DELETE /api/v1/delegation", s.handleDelegationEnd)
	s.mux.HandleFunc("GET /api/v1/delegation/status", s.handleDelegationStatus)
	s.mux.HandleFunc("GET /api/v1/audit", s.handleAuditList)

	s.mux.HandleFunc("POST /api/v1/agents/apply", s.handleAgentApply)
	s.mux.HandleFunc("POST /api/v1/agents/{profile_id}/review", s.handleAgentReview)
	s.mux.HandleFunc("POST /api/v1/agents/{profile_id}/suspend", s.handleAgentSuspend)

	s.mux.HandleFunc("POST /api/v1/agent-clients", s.handleAgentClientCreate)
	s.mux.HandleFunc("POST /api/v1/agent-clients/{agent_client_id}/activate", s.handleAgentClientActivate)
	s.mux.HandleFunc("DELETE /api/v1/agent-clients/{agent_client_id}", s.handleAgentClientTerminate)

	s.mux.HandleFunc("GET /api/v1/wallet", s.handleWalletGet)
	s.mux.HandleFunc("POST /api/v1/wallet/payouts", s.handleWalletRequestPayout)
	s.mux.HandleFunc("GET /api/v1/wallet/payouts", s.handleWalletListPayouts)
	s.mux.HandleFunc("POST /api/v1/wallet/balance", s.handleWalletAdjustBalance)
	s.mux.HandleFunc("PUT /api/v1/wallet/payout-method", s.handleWalletChangePayoutMethod)
	s.mux.HandleFunc("PUT /api/v1/wallet/billing-profile", s.handleWalletUpdateBillingProfile)
}

type envelopeError struct {
	Message string `json:"message"`
}

type responseEnvelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *envelopeError `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, responseEnvelope{Success: true, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, responseEnvelope{Success: false, Error: &envelopeError{Message: message}})
}

// bearerToken extracts the credential from the Authorization header; empty
// when the header is missing or malformed.
func bearerToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func resolveClientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeFailure(w, http.StatusBadRequest, "request body must be valid JSON")
		return false
	}
	return true
}
