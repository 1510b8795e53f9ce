package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	wallet "flowsmartly/contexts/finance-core/wallet-service"
	walletports "flowsmartly/contexts/finance-core/wallet-service/ports"
	delegation "flowsmartly/contexts/identity-access/delegation-service"
	delegationentities "flowsmartly/contexts/identity-access/delegation-service/domain/entities"
	"flowsmartly/contexts/identity-access/delegation-service/ports"
	session "flowsmartly/contexts/identity-access/session-service"
	sessionentities "flowsmartly/contexts/identity-access/session-service/domain/entities"
)

const testPassword = "correct horse battery staple"

// newTestServer wires the three in-memory modules the way bootstrap does:
// session resolution feeds delegation, and the delegation gate guards the
// wallet. Seeds one approved agent with an active client contract, a second
// approved agent, and an admin.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sessionModule := session.NewInMemoryModule(logger)
	delegationModule := delegation.NewInMemoryModule(sessionModule.Resolver, nil, logger)
	walletModule := wallet.NewInMemoryModule(delegationModule.Gate, logger)

	hash, err := sessionModule.Hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash test password: %v", err)
	}
	now := time.Now().UTC()
	for _, accountID := range []string{"agent-1", "agent-2", "client-1", "admin-1"} {
		sessionModule.Store.SeedAccount(sessionentities.Account{
			AccountID:    accountID,
			Email:        accountID + "@flowsmartly.test",
			PasswordHash: hash,
			CreatedAt:    now,
		})
		principal := delegationentities.Principal{
			PrincipalID: accountID,
			Email:       accountID + "@flowsmartly.test",
			CreatedAt:   now,
		}
		if accountID == "admin-1" {
			principal.PlanTier = delegationentities.PlanTierAdmin
		}
		delegationModule.Store.SeedPrincipal(principal)
	}

	ctx := context.Background()
	for i, agentID := range []string{"agent-1", "agent-2"} {
		profileID := []string{"profile-1", "profile-2"}[i]
		if _, err := delegationModule.Store.CreateAgentProfile(ctx, ports.CreateAgentProfileInput{
			ProfileID:   profileID,
			PrincipalID: agentID,
			CreatedAt:   now,
		}); err != nil {
			t.Fatalf("seed agent profile: %v", err)
		}
		if _, err := delegationModule.Store.ReviewAgentProfile(ctx, ports.ReviewAgentInput{
			AuditLogID: "seed-audit-" + profileID,
			OutboxID:   "seed-outbox-" + profileID,
			ProfileID:  profileID,
			AdminID:    "admin-1",
			Approve:    true,
			ReviewedAt: now,
		}); err != nil {
			t.Fatalf("approve agent profile: %v", err)
		}
	}
	if _, err := delegationModule.Store.CreateAgentClient(ctx, ports.CreateAgentClientInput{
		AgentClientID:     "contract-1",
		AgentProfileID:    "profile-1",
		ClientPrincipalID: "client-1",
		Active:            true,
		CreatedAt:         now,
	}); err != nil {
		t.Fatalf("seed agent client: %v", err)
	}
	if _, err := delegationModule.Store.CreateAgentClient(ctx, ports.CreateAgentClientInput{
		AgentClientID:     "contract-2",
		AgentProfileID:    "profile-2",
		ClientPrincipalID: "client-1",
		Active:            true,
		CreatedAt:         now,
	}); err != nil {
		t.Fatalf("seed second agent client: %v", err)
	}

	walletModule.Store.SeedWallet(walletports.Wallet{
		OwnerID:      "client-1",
		BalanceCents: 10_000,
		Currency:     "USD",
		UpdatedAt:    now,
	})
	walletModule.Store.SeedWallet(walletports.Wallet{
		OwnerID:      "agent-1",
		BalanceCents: 2_500,
		Currency:     "USD",
		UpdatedAt:    now,
	})

	return New(sessionModule, delegationModule, walletModule, logger, ":0")
}

func doJSON(t *testing.T, server *Server, method string, path string, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload responseEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json response: %v body=%s", err, rr.Body.String())
	}
	if !payload.Success {
		t.Fatalf("expected success envelope, got body=%s", rr.Body.String())
	}
	data, ok := payload.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected object data payload, got %#v", payload.Data)
	}
	return data
}

func loginAs(t *testing.T, server *Server, accountID string) string {
	t.Helper()
	rr := doJSON(t, server, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    accountID + "@flowsmartly.test",
		"password": testPassword,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login as %s failed: %d body=%s", accountID, rr.Code, rr.Body.String())
	}
	data := decodeEnvelope(t, rr)
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatalf("expected token in login response, got %s", rr.Body.String())
	}
	return token
}

func TestLoginRejectsBadPassword(t *testing.T) {
	server := newTestServer(t)
	rr := doJSON(t, server, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "agent-1@flowsmartly.test",
		"password": "wrong",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestLoginDoesNotDistinguishUnknownEmail(t *testing.T) {
	server := newTestServer(t)
	unknown := doJSON(t, server, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "nobody@flowsmartly.test",
		"password": testPassword,
	})
	wrongPassword := doJSON(t, server, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "agent-1@flowsmartly.test",
		"password": "wrong",
	})
	if unknown.Code != wrongPassword.Code {
		t.Fatalf("expected identical status for unknown email and wrong password, got %d and %d", unknown.Code, wrongPassword.Code)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	server := newTestServer(t)
	token := loginAs(t, server, "agent-1")

	rr := doJSON(t, server, http.MethodPost, "/api/v1/auth/logout", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("logout failed: %d body=%s", rr.Code, rr.Body.String())
	}

	status := doJSON(t, server, http.MethodGet, "/api/v1/delegation/status", token, nil)
	if status.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with revoked token, got %d body=%s", status.Code, status.Body.String())
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	server := newTestServer(t)
	token := loginAs(t, server, "client-1")

	first := doJSON(t, server, http.MethodPost, "/api/v1/auth/logout", token, nil)
	second := doJSON(t, server, http.MethodPost, "/api/v1/auth/logout", token, nil)
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("expected both logouts to succeed, got %d and %d", first.Code, second.Code)
	}
}
