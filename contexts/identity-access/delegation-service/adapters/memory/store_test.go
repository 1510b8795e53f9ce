package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"flowsmartly/contexts/identity-access/delegation-service/domain/entities"
	"flowsmartly/contexts/identity-access/delegation-service/ports"
)

func seedApprovedAgent(t *testing.T, store *Store) (profileID string, contractID string) {
	t.Helper()
	ctx := context.Background()
	now := store.Now()

	store.SeedPrincipal(entities.Principal{PrincipalID: "agent-1", Email: "agent@flowsmartly.test", CreatedAt: now})
	store.SeedPrincipal(entities.Principal{PrincipalID: "client-1", Email: "client@flowsmartly.test", CreatedAt: now})

	profile, err := store.CreateAgentProfile(ctx, ports.CreateAgentProfileInput{
		ProfileID:   "profile-1",
		PrincipalID: "agent-1",
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("create agent profile failed: %v", err)
	}
	if _, err := store.ReviewAgentProfile(ctx, ports.ReviewAgentInput{
		AuditLogID: "audit-review-1",
		OutboxID:   "outbox-review-1",
		ProfileID:  profile.ProfileID,
		AdminID:    "admin-1",
		Approve:    true,
		ReviewedAt: now,
	}); err != nil {
		t.Fatalf("approve agent profile failed: %v", err)
	}

	contract, err := store.CreateAgentClient(ctx, ports.CreateAgentClientInput{
		AgentClientID:     "contract-1",
		AgentProfileID:    profile.ProfileID,
		ClientPrincipalID: "client-1",
		Active:            true,
		CreatedAt:         now,
	})
	if err != nil {
		t.Fatalf("create agent client failed: %v", err)
	}
	return profile.ProfileID, contract.AgentClientID
}

func startInput(n int, profileID, contractID string, at time.Time) ports.StartDelegationInput {
	return ports.StartDelegationInput{
		SessionID:         fmt.Sprintf("session-%d", n),
		AuditLogID:        fmt.Sprintf("audit-start-%d", n),
		OutboxID:          fmt.Sprintf("outbox-start-%d", n),
		AgentProfileID:    profileID,
		AgentPrincipalID:  "agent-1",
		ClientPrincipalID: "client-1",
		AgentClientID:     contractID,
		Reason:            "support request",
		StartedAt:         at,
	}
}

func TestStartDelegationClosesPreviousSession(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	profileID, contractID := seedApprovedAgent(t, store)

	first, err := store.StartDelegation(ctx, startInput(1, profileID, contractID, store.Now()))
	if err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if first.ClosedSession != nil {
		t.Fatalf("expected no replaced session on first start, got %s", first.ClosedSession.SessionID)
	}

	second, err := store.StartDelegation(ctx, startInput(2, profileID, contractID, store.Now()))
	if err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if second.ClosedSession == nil {
		t.Fatal("expected second start to close the first session")
	}
	if second.ClosedSession.SessionID != first.Session.SessionID {
		t.Fatalf("expected closed session %s, got %s", first.Session.SessionID, second.ClosedSession.SessionID)
	}
	if second.ClosedSession.ClosedBy != entities.ClosedByAgent {
		t.Fatalf("expected replaced session closed by agent, got %s", second.ClosedSession.ClosedBy)
	}

	open, found, err := store.GetOpenSession(ctx, profileID)
	if err != nil {
		t.Fatalf("get open session failed: %v", err)
	}
	if !found || open.SessionID != second.Session.SessionID {
		t.Fatalf("expected open session %s, got found=%v id=%s", second.Session.SessionID, found, open.SessionID)
	}
}

func TestConcurrentStartsLeaveOneOpenSession(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	profileID, contractID := seedApprovedAgent(t, store)

	const attempts = 16
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := store.StartDelegation(ctx, startInput(n, profileID, contractID, store.Now())); err != nil {
				t.Errorf("start %d failed: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	_, found, err := store.GetOpenSession(ctx, profileID)
	if err != nil {
		t.Fatalf("get open session failed: %v", err)
	}
	if !found {
		t.Fatal("expected exactly one open session after concurrent starts, got none")
	}

	entries, err := store.QueryAudit(ctx, ports.AuditFilter{Action: entities.AuditImpersonationEnded, Limit: 200})
	if err != nil {
		t.Fatalf("query audit failed: %v", err)
	}
	if len(entries) != attempts-1 {
		t.Fatalf("expected %d replaced-session closes, got %d", attempts-1, len(entries))
	}
}

func TestSuspendAgentCascades(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	profileID, contractID := seedApprovedAgent(t, store)

	started, err := store.StartDelegation(ctx, startInput(1, profileID, contractID, store.Now()))
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	result, err := store.SuspendAgent(ctx, ports.SuspendAgentInput{
		AuditLogID:        "audit-suspend-1",
		SessionAuditLogID: "audit-suspend-session-1",
		OutboxID:          "outbox-suspend-1",
		ProfileID:         profileID,
		AdminID:           "admin-1",
		Reason:            "policy violation",
		SuspendedAt:       store.Now(),
	})
	if err != nil {
		t.Fatalf("suspend failed: %v", err)
	}
	if result.Profile.Status != entities.AgentProfileSuspended {
		t.Fatalf("expected suspended profile, got %s", result.Profile.Status)
	}
	if result.ClosedSession == nil || result.ClosedSession.SessionID != started.Session.SessionID {
		t.Fatal("expected suspension to close the open session")
	}
	if result.ClosedSession.ClosedBy != entities.ClosedBySystem {
		t.Fatalf("expected system close, got %s", result.ClosedSession.ClosedBy)
	}

	contract, found, err := store.GetAgentClient(ctx, contractID)
	if err != nil || !found {
		t.Fatalf("get agent client failed: found=%v err=%v", found, err)
	}
	if contract.Status != entities.AgentClientTerminated {
		t.Fatalf("expected terminated contract after suspension, got %s", contract.Status)
	}
	if contract.TerminatedBy != entities.TerminatedBySystem {
		t.Fatalf("expected system termination, got %s", contract.TerminatedBy)
	}

	closes, err := store.QueryAudit(ctx, ports.AuditFilter{
		Action:   entities.AuditImpersonationEnded,
		TargetID: started.Session.SessionID,
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("query audit failed: %v", err)
	}
	if len(closes) != 1 {
		t.Fatalf("expected one forced-close audit entry, got %d", len(closes))
	}
	if closes[0].ActorID != "system" {
		t.Fatalf("expected forced close attributed to system, got %s", closes[0].ActorID)
	}
}

func TestEndDelegationIdempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	profileID, contractID := seedApprovedAgent(t, store)

	if _, err := store.StartDelegation(ctx, startInput(1, profileID, contractID, store.Now())); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	first, err := store.EndDelegation(ctx, ports.EndDelegationInput{
		AuditLogID:     "audit-end-1",
		OutboxID:       "outbox-end-1",
		AgentProfileID: profileID,
		ClosedBy:       entities.ClosedByAgent,
		EndedAt:        store.Now(),
	})
	if err != nil {
		t.Fatalf("first end failed: %v", err)
	}
	if !first.Ended {
		t.Fatal("expected first end to close the session")
	}

	second, err := store.EndDelegation(ctx, ports.EndDelegationInput{
		AuditLogID:     "audit-end-2",
		OutboxID:       "outbox-end-2",
		AgentProfileID: profileID,
		ClosedBy:       entities.ClosedByAgent,
		EndedAt:        store.Now(),
	})
	if err != nil {
		t.Fatalf("second end failed: %v", err)
	}
	if second.Ended {
		t.Fatal("expected second end to be a no-op")
	}
}

func TestOutboxRowsPendingUntilMarked(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	profileID, contractID := seedApprovedAgent(t, store)

	if _, err := store.StartDelegation(ctx, startInput(1, profileID, contractID, store.Now())); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	pending, err := store.ListPendingOutbox(ctx, 50)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}
	if len(pending) == 0 {
		t.Fatal("expected pending outbox rows after delegation start")
	}

	for _, row := range pending {
		if err := store.MarkOutboxPublished(ctx, row.OutboxID, store.Now()); err != nil {
			t.Fatalf("mark outbox published failed: %v", err)
		}
	}
	remaining, err := store.ListPendingOutbox(ctx, 50)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no pending rows after marking, got %d", len(remaining))
	}
}
