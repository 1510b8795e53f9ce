package httpserver

import (
	"net/http"
	"testing"
)

func TestDelegationStatusRequiresAuthorization(t *testing.T) {
	server := newTestServer(t)
	rr := doJSON(t, server, http.MethodGet, "/api/v1/delegation/status", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDelegationStartRejectsNonAgent(t *testing.T) {
	server := newTestServer(t)
	token := loginAs(t, server, "client-1")

	rr := doJSON(t, server, http.MethodPost, "/api/v1/delegation/start", token, map[string]string{
		"agent_client_id": "contract-1",
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-agent, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDelegationStartHidesForeignContracts(t *testing.T) {
	server := newTestServer(t)
	token := loginAs(t, server, "agent-1")

	missing := doJSON(t, server, http.MethodPost, "/api/v1/delegation/start", token, map[string]string{
		"agent_client_id": "contract-does-not-exist",
	})
	foreign := doJSON(t, server, http.MethodPost, "/api/v1/delegation/start", token, map[string]string{
		"agent_client_id": "contract-2",
	})
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing contract, got %d body=%s", missing.Code, missing.Body.String())
	}
	if foreign.Code != missing.Code {
		t.Fatalf("foreign contract must be indistinguishable from missing, got %d vs %d", foreign.Code, missing.Code)
	}
}

func TestDelegationStartAndStatusRoundTrip(t *testing.T) {
	server := newTestServer(t)
	token := loginAs(t, server, "agent-1")

	start := doJSON(t, server, http.MethodPost, "/api/v1/delegation/start", token, map[string]string{
		"agent_client_id": "contract-1",
		"reason":          "campaign setup",
	})
	if start.Code != http.StatusOK {
		t.Fatalf("start failed: %d body=%s", start.Code, start.Body.String())
	}
	startData := decodeEnvelope(t, start)
	if startData["client_principal_id"] != "client-1" {
		t.Fatalf("expected client-1, got %#v", startData["client_principal_id"])
	}
	if startData["redirect_to"] != "/dashboard/client" {
		t.Fatalf("expected client dashboard redirect, got %#v", startData["redirect_to"])
	}

	status := doJSON(t, server, http.MethodGet, "/api/v1/delegation/status", token, nil)
	if status.Code != http.StatusOK {
		t.Fatalf("status failed: %d body=%s", status.Code, status.Body.String())
	}
	statusData := decodeEnvelope(t, status)
	if statusData["is_impersonating"] != true {
		t.Fatalf("expected active impersonation, got %s", status.Body.String())
	}
}

func TestDelegationEndIsIdempotent(t *testing.T) {
	server := newTestServer(t)
	token := loginAs(t, server, "agent-1")

	start := doJSON(t, server, http.MethodPost, "/api/v1/delegation/start", token, map[string]string{
		"agent_client_id": "contract-1",
	})
	if start.Code != http.StatusOK {
		t.Fatalf("start failed: %d body=%s", start.Code, start.Body.String())
	}

	first := doJSON(t, server, http.MethodDelete, "/api/v1/delegation", token, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first end failed: %d body=%s", first.Code, first.Body.String())
	}
	if data := decodeEnvelope(t, first); data["ended"] != true {
		t.Fatalf("expected ended=true, got %s", first.Body.String())
	}

	second := doJSON(t, server, http.MethodDelete, "/api/v1/delegation", token, nil)
	if second.Code != http.StatusOK {
		t.Fatalf("second end must still succeed, got %d body=%s", second.Code, second.Body.String())
	}
	if data := decodeEnvelope(t, second); data["ended"] != false {
		t.Fatalf("expected ended=false on replay, got %s", second.Body.String())
	}
}

func TestAgentSuspensionCascadesToOpenSession(t *testing.T) {
	server := newTestServer(t)
	agentToken := loginAs(t, server, "agent-1")
	adminToken := loginAs(t, server, "admin-1")

	start := doJSON(t, server, http.MethodPost, "/api/v1/delegation/start", agentToken, map[string]string{
		"agent_client_id": "contract-1",
	})
	if start.Code != http.StatusOK {
		t.Fatalf("start failed: %d body=%s", start.Code, start.Body.String())
	}

	suspend := doJSON(t, server, http.MethodPost, "/api/v1/agents/profile-1/suspend", adminToken, map[string]string{
		"reason": "policy violation",
	})
	if suspend.Code != http.StatusOK {
		t.Fatalf("suspend failed: %d body=%s", suspend.Code, suspend.Body.String())
	}
	if data := decodeEnvelope(t, suspend); data["session_closed"] != true {
		t.Fatalf("expected session_closed=true, got %s", suspend.Body.String())
	}

	status := doJSON(t, server, http.MethodGet, "/api/v1/delegation/status", agentToken, nil)
	if status.Code != http.StatusOK {
		t.Fatalf("status failed: %d body=%s", status.Code, status.Body.String())
	}
	if data := decodeEnvelope(t, status); data["is_impersonating"] != false {
		t.Fatalf("expected overlay closed after suspension, got %s", status.Body.String())
	}

	restart := doJSON(t, server, http.MethodPost, "/api/v1/delegation/start", agentToken, map[string]string{
		"agent_client_id": "contract-1",
	})
	if restart.Code != http.StatusForbidden {
		t.Fatalf("suspended agent must not start delegation, got %d body=%s", restart.Code, restart.Body.String())
	}
}

func TestAuditListRecordsSystemAttributedClose(t *testing.T) {
	server := newTestServer(t)
	agentToken := loginAs(t, server, "agent-1")
	adminToken := loginAs(t, server, "admin-1")

	if rr := doJSON(t, server, http.MethodPost, "/api/v1/delegation/start", agentToken, map[string]string{
		"agent_client_id": "contract-1",
	}); rr.Code != http.StatusOK {
		t.Fatalf("start failed: %d body=%s", rr.Code, rr.Body.String())
	}
	if rr := doJSON(t, server, http.MethodPost, "/api/v1/agents/profile-1/suspend", adminToken, nil); rr.Code != http.StatusOK {
		t.Fatalf("suspend failed: %d body=%s", rr.Code, rr.Body.String())
	}

	audit := doJSON(t, server, http.MethodGet, "/api/v1/audit?actor_id=system&action=impersonation_ended", adminToken, nil)
	if audit.Code != http.StatusOK {
		t.Fatalf("audit list failed: %d body=%s", audit.Code, audit.Body.String())
	}
	data := decodeEnvelope(t, audit)
	entries, ok := data["entries"].([]any)
	if !ok || len(entries) == 0 {
		t.Fatalf("expected system-attributed impersonation_ended entries, got %s", audit.Body.String())
	}
}

func TestAgentReviewRequiresAdministrator(t *testing.T) {
	server := newTestServer(t)
	clientToken := loginAs(t, server, "client-1")
	agentToken := loginAs(t, server, "agent-2")

	apply := doJSON(t, server, http.MethodPost, "/api/v1/agents/apply", clientToken, nil)
	if apply.Code != http.StatusCreated {
		t.Fatalf("apply failed: %d body=%s", apply.Code, apply.Body.String())
	}
	profileID, _ := decodeEnvelope(t, apply)["profile_id"].(string)
	if profileID == "" {
		t.Fatalf("expected profile id in apply response, got %s", apply.Body.String())
	}

	selfReview := doJSON(t, server, http.MethodPost, "/api/v1/agents/"+profileID+"/review", clientToken, map[string]any{
		"approve": true,
	})
	if selfReview.Code != http.StatusForbidden {
		t.Fatalf("applicant must not approve its own profile, got %d body=%s", selfReview.Code, selfReview.Body.String())
	}

	peerSuspend := doJSON(t, server, http.MethodPost, "/api/v1/agents/profile-1/suspend", agentToken, map[string]string{
		"reason": "competition",
	})
	if peerSuspend.Code != http.StatusForbidden {
		t.Fatalf("non-administrators must not suspend agents, got %d body=%s", peerSuspend.Code, peerSuspend.Body.String())
	}
}

func TestAuditListScopedToNonAdministrators(t *testing.T) {
	server := newTestServer(t)
	agentToken := loginAs(t, server, "agent-1")
	clientToken := loginAs(t, server, "client-1")
	adminToken := loginAs(t, server, "admin-1")

	if rr := doJSON(t, server, http.MethodPost, "/api/v1/delegation/start", agentToken, map[string]string{
		"agent_client_id": "contract-1",
	}); rr.Code != http.StatusOK {
		t.Fatalf("start failed: %d body=%s", rr.Code, rr.Body.String())
	}

	countEntries := func(token string) int {
		rr := doJSON(t, server, http.MethodGet, "/api/v1/audit?action=impersonation_started", token, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("audit list failed: %d body=%s", rr.Code, rr.Body.String())
		}
		entries, _ := decodeEnvelope(t, rr)["entries"].([]any)
		return len(entries)
	}

	if n := countEntries(adminToken); n == 0 {
		t.Fatalf("administrators must see the full trail")
	}
	if n := countEntries(agentToken); n == 0 {
		t.Fatalf("the acting agent must see its own entries")
	}
	if n := countEntries(clientToken); n != 0 {
		t.Fatalf("uninvolved principals must not see other actors' entries, got %d", n)
	}
}

func TestAgentApplyThenReviewFlow(t *testing.T) {
	server := newTestServer(t)
	clientToken := loginAs(t, server, "client-1")
	adminToken := loginAs(t, server, "admin-1")

	apply := doJSON(t, server, http.MethodPost, "/api/v1/agents/apply", clientToken, nil)
	if apply.Code != http.StatusCreated {
		t.Fatalf("apply failed: %d body=%s", apply.Code, apply.Body.String())
	}
	applyData := decodeEnvelope(t, apply)
	profileID, _ := applyData["profile_id"].(string)
	if profileID == "" || applyData["status"] != "pending" {
		t.Fatalf("expected pending profile, got %s", apply.Body.String())
	}

	again := doJSON(t, server, http.MethodPost, "/api/v1/agents/apply", clientToken, nil)
	if again.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate application, got %d body=%s", again.Code, again.Body.String())
	}

	review := doJSON(t, server, http.MethodPost, "/api/v1/agents/"+profileID+"/review", adminToken, map[string]any{
		"approve": true,
	})
	if review.Code != http.StatusOK {
		t.Fatalf("review failed: %d body=%s", review.Code, review.Body.String())
	}
	if data := decodeEnvelope(t, review); data["status"] != "approved" {
		t.Fatalf("expected approved profile, got %s", review.Body.String())
	}
}
