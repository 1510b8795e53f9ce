package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	delegation "flowsmartly/contexts/identity-access/delegation-service"
	"flowsmartly/contexts/identity-access/delegation-service/application/queries"
	"flowsmartly/contexts/identity-access/delegation-service/domain/entities"
	domainerrors "flowsmartly/contexts/identity-access/delegation-service/domain/errors"
	"flowsmartly/contexts/identity-access/delegation-service/ports"
	httptransport "flowsmartly/contexts/identity-access/delegation-service/transport/http"
	"flowsmartly/internal/shared/events"
)

// staticResolver maps bearer credentials to principal ids for tests.
type staticResolver map[string]string

func (r staticResolver) ResolvePrincipal(_ context.Context, credential string) (string, error) {
	principalID, ok := r[credential]
	if !ok {
		return "", errors.New("unknown credential")
	}
	return principalID, nil
}

// recordingPublisher captures relayed notification events.
type recordingPublisher struct {
	keys   []string
	values []any
}

func (p *recordingPublisher) Publish(_ context.Context, key string, value any) error {
	p.keys = append(p.keys, key)
	p.values = append(p.values, value)
	return nil
}

var testResolver = staticResolver{
	"tok-agent-1":  "agent-1",
	"tok-client-1": "client-1",
}

// newDelegationModule seeds one approved agent (agent-1/profile-1) with an
// active contract to client-1, a pending applicant, and a second approved
// agent whose contract is used to probe cross-agent visibility.
func newDelegationModule(t *testing.T, publisher ports.NotificationPublisher) delegation.Module {
	t.Helper()
	module := delegation.NewInMemoryModule(testResolver, publisher, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, principalID := range []string{"agent-1", "agent-2", "client-1", "admin-1", "pending-1"} {
		principal := entities.Principal{
			PrincipalID: principalID,
			Email:       principalID + "@flowsmartly.test",
			CreatedAt:   now,
		}
		if principalID == "admin-1" {
			principal.PlanTier = entities.PlanTierAdmin
		}
		module.Store.SeedPrincipal(principal)
	}

	for i, agentID := range []string{"agent-1", "agent-2"} {
		profileID := []string{"profile-1", "profile-2"}[i]
		if _, err := module.Store.CreateAgentProfile(ctx, ports.CreateAgentProfileInput{
			ProfileID:   profileID,
			PrincipalID: agentID,
			CreatedAt:   now,
		}); err != nil {
			t.Fatalf("seed profile %s: %v", profileID, err)
		}
		if _, err := module.Store.ReviewAgentProfile(ctx, ports.ReviewAgentInput{
			AuditLogID: "seed-audit-" + profileID,
			OutboxID:   "seed-outbox-" + profileID,
			ProfileID:  profileID,
			AdminID:    "admin-1",
			Approve:    true,
			ReviewedAt: now,
		}); err != nil {
			t.Fatalf("approve profile %s: %v", profileID, err)
		}
	}
	if _, err := module.Store.CreateAgentProfile(ctx, ports.CreateAgentProfileInput{
		ProfileID:   "profile-pending",
		PrincipalID: "pending-1",
		CreatedAt:   now,
	}); err != nil {
		t.Fatalf("seed pending profile: %v", err)
	}

	contracts := []ports.CreateAgentClientInput{
		{AgentClientID: "contract-1", AgentProfileID: "profile-1", ClientPrincipalID: "client-1", Active: true, CreatedAt: now},
		{AgentClientID: "contract-paused", AgentProfileID: "profile-1", ClientPrincipalID: "client-1", Active: false, CreatedAt: now},
		{AgentClientID: "contract-foreign", AgentProfileID: "profile-2", ClientPrincipalID: "client-1", Active: true, CreatedAt: now},
	}
	for _, contract := range contracts {
		if _, err := module.Store.CreateAgentClient(ctx, contract); err != nil {
			t.Fatalf("seed contract %s: %v", contract.AgentClientID, err)
		}
	}
	return module
}

func startDelegationAs(t *testing.T, module delegation.Module, principalID string, agentClientID string) httptransport.StartDelegationResponse {
	t.Helper()
	resp, err := module.Handler.StartDelegationHandler(context.Background(), principalID, httptransport.StartDelegationRequest{
		AgentClientID: agentClientID,
	})
	if err != nil {
		t.Fatalf("start delegation for %s via %s: %v", principalID, agentClientID, err)
	}
	return resp
}

func TestStartDelegationPreconditionOrdering(t *testing.T) {
	module := newDelegationModule(t, nil)
	ctx := context.Background()

	cases := []struct {
		name          string
		principalID   string
		agentClientID string
		wantErr       error
	}{
		{"no profile", "client-1", "contract-1", domainerrors.ErrNotAnAgent},
		{"pending profile", "pending-1", "contract-1", domainerrors.ErrAgentNotApproved},
		{"unknown contract", "agent-1", "contract-missing", domainerrors.ErrRelationshipNotFound},
		{"foreign contract", "agent-1", "contract-foreign", domainerrors.ErrRelationshipNotFound},
		{"inactive contract", "agent-1", "contract-paused", domainerrors.ErrRelationshipNotActive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := module.Handler.StartDelegationHandler(ctx, tc.principalID, httptransport.StartDelegationRequest{
				AgentClientID: tc.agentClientID,
			})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestStartDelegationReplacesOpenSession(t *testing.T) {
	module := newDelegationModule(t, nil)
	ctx := context.Background()

	first := startDelegationAs(t, module, "agent-1", "contract-1")
	if first.ReplacedSession {
		t.Fatalf("first start must not report a replaced session")
	}

	second := startDelegationAs(t, module, "agent-1", "contract-1")
	if !second.ReplacedSession {
		t.Fatalf("second start must replace the open session")
	}
	if second.SessionID == first.SessionID {
		t.Fatalf("replacement must mint a new session id")
	}

	open, found, err := module.Store.GetOpenSession(ctx, "profile-1")
	if err != nil {
		t.Fatalf("get open session: %v", err)
	}
	if !found || open.SessionID != second.SessionID {
		t.Fatalf("expected exactly the second session open, found=%v session=%s", found, open.SessionID)
	}
}

func TestEndDelegationIsIdempotent(t *testing.T) {
	module := newDelegationModule(t, nil)
	ctx := context.Background()

	startDelegationAs(t, module, "agent-1", "contract-1")

	first, err := module.Handler.EndDelegationHandler(ctx, "agent-1", httptransport.EndDelegationRequest{})
	if err != nil {
		t.Fatalf("first end failed: %v", err)
	}
	if !first.Ended {
		t.Fatalf("expected first end to close the session")
	}

	second, err := module.Handler.EndDelegationHandler(ctx, "agent-1", httptransport.EndDelegationRequest{})
	if err != nil {
		t.Fatalf("replayed end must not error: %v", err)
	}
	if second.Ended {
		t.Fatalf("replayed end must be a no-op")
	}
}

func TestSuspendAgentCascadesToSessionAndContracts(t *testing.T) {
	module := newDelegationModule(t, nil)
	ctx := context.Background()

	startDelegationAs(t, module, "agent-1", "contract-1")

	resp, err := module.Handler.SuspendAgentHandler(ctx, "profile-1", "admin-1", httptransport.SuspendAgentRequest{
		Reason: "policy violation",
	})
	if err != nil {
		t.Fatalf("suspend failed: %v", err)
	}
	if !resp.SessionClosed {
		t.Fatalf("suspension must close the open overlay")
	}
	if resp.Profile.Status != string(entities.AgentProfileSuspended) {
		t.Fatalf("expected suspended profile, got %s", resp.Profile.Status)
	}

	contract, found, err := module.Store.GetAgentClient(ctx, "contract-1")
	if err != nil || !found {
		t.Fatalf("get contract: found=%v err=%v", found, err)
	}
	if contract.Status != entities.AgentClientTerminated {
		t.Fatalf("expected terminated contract, got %s", contract.Status)
	}
	if contract.TerminatedBy != entities.TerminatedBySystem {
		t.Fatalf("cascade termination must be system-attributed, got %s", contract.TerminatedBy)
	}

	if _, err := module.Handler.StartDelegationHandler(ctx, "agent-1", httptransport.StartDelegationRequest{
		AgentClientID: "contract-1",
	}); !errors.Is(err, domainerrors.ErrAgentNotApproved) {
		t.Fatalf("suspended agent must not delegate, got %v", err)
	}

	audit, err := module.Handler.ListAuditHandler(ctx, queries.ListAuditEntriesQuery{
		ActorID: "system",
		Action:  entities.AuditImpersonationEnded,
	})
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(audit.Entries) == 0 {
		t.Fatalf("expected a system-attributed forced close in the audit log")
	}
}

func TestTerminateRelationshipClosesOpenSession(t *testing.T) {
	module := newDelegationModule(t, nil)
	ctx := context.Background()

	startDelegationAs(t, module, "agent-1", "contract-1")

	if _, err := module.Handler.TerminateRelationshipHandler(ctx, "contract-1", "client-1", entities.TerminatedByClient, httptransport.TerminateRelationshipRequest{
		Reason: "switching agencies",
	}); err != nil {
		t.Fatalf("terminate relationship: %v", err)
	}

	status, err := module.Handler.DelegationStatusHandler(ctx, "agent-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.IsImpersonating {
		t.Fatalf("terminating the relationship must close the overlay")
	}
}

func TestAgentApplyAndReviewLifecycle(t *testing.T) {
	module := newDelegationModule(t, nil)
	ctx := context.Background()

	apply, err := module.Handler.ApplyAgentHandler(ctx, "client-1")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if apply.Status != string(entities.AgentProfilePending) {
		t.Fatalf("expected pending application, got %s", apply.Status)
	}

	if _, err := module.Handler.ApplyAgentHandler(ctx, "client-1"); !errors.Is(err, domainerrors.ErrAgentAlreadyApplied) {
		t.Fatalf("expected duplicate application rejection, got %v", err)
	}

	review, err := module.Handler.ReviewAgentHandler(ctx, apply.ProfileID, "admin-1", httptransport.ReviewAgentRequest{
		Approve: true,
	})
	if err != nil {
		t.Fatalf("review failed: %v", err)
	}
	if review.Status != string(entities.AgentProfileApproved) {
		t.Fatalf("expected approved profile, got %s", review.Status)
	}
}

func TestAgentLifecycleRequiresAdministrator(t *testing.T) {
	module := newDelegationModule(t, nil)
	ctx := context.Background()

	if _, err := module.Handler.ReviewAgentHandler(ctx, "profile-pending", "pending-1", httptransport.ReviewAgentRequest{
		Approve: true,
	}); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("applicants must not approve their own profile, got %v", err)
	}
	if _, err := module.Handler.ReviewAgentHandler(ctx, "profile-pending", "ghost-1", httptransport.ReviewAgentRequest{
		Approve: true,
	}); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("unknown reviewers must be forbidden, got %v", err)
	}
	profile, found, err := module.Store.GetAgentProfile(ctx, "profile-pending")
	if err != nil || !found {
		t.Fatalf("get pending profile: found=%v err=%v", found, err)
	}
	if profile.Status != entities.AgentProfilePending {
		t.Fatalf("denied review must leave the profile pending, got %s", profile.Status)
	}

	if _, err := module.Handler.SuspendAgentHandler(ctx, "profile-1", "client-1", httptransport.SuspendAgentRequest{
		Reason: "grudge",
	}); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("regular principals must not suspend agents, got %v", err)
	}
	profile, found, err = module.Store.GetAgentProfile(ctx, "profile-1")
	if err != nil || !found {
		t.Fatalf("get agent profile: found=%v err=%v", found, err)
	}
	if profile.Status != entities.AgentProfileApproved {
		t.Fatalf("denied suspension must leave the profile approved, got %s", profile.Status)
	}
}

func TestStartDelegationRejectsDisabledClient(t *testing.T) {
	module := newDelegationModule(t, nil)
	ctx := context.Background()

	now := time.Now().UTC()
	module.Store.SeedPrincipal(entities.Principal{
		PrincipalID: "client-gone",
		Email:       "client-gone@flowsmartly.test",
		CreatedAt:   now,
		DeletedAt:   &now,
	})
	if _, err := module.Store.CreateAgentClient(ctx, ports.CreateAgentClientInput{
		AgentClientID:     "contract-gone",
		AgentProfileID:    "profile-1",
		ClientPrincipalID: "client-gone",
		Active:            true,
		CreatedAt:         now,
	}); err != nil {
		t.Fatalf("seed contract for deleted client: %v", err)
	}

	if _, err := module.Handler.StartDelegationHandler(ctx, "agent-1", httptransport.StartDelegationRequest{
		AgentClientID: "contract-gone",
	}); !errors.Is(err, domainerrors.ErrRelationshipNotActive) {
		t.Fatalf("soft-deleted clients must not be impersonated, got %v", err)
	}
}

func TestRelationshipChangesHiddenFromNonParties(t *testing.T) {
	module := newDelegationModule(t, nil)
	ctx := context.Background()

	if _, err := module.Handler.TerminateRelationshipHandler(ctx, "contract-1", "agent-2", entities.TerminatedByAgent, httptransport.TerminateRelationshipRequest{
		Reason: "poaching",
	}); !errors.Is(err, domainerrors.ErrRelationshipNotFound) {
		t.Fatalf("non-parties must see foreign contracts as missing, got %v", err)
	}
	if _, err := module.Handler.ActivateRelationshipHandler(ctx, "contract-paused", "agent-2"); !errors.Is(err, domainerrors.ErrRelationshipNotFound) {
		t.Fatalf("only the client party activates, got %v", err)
	}

	activated, err := module.Handler.ActivateRelationshipHandler(ctx, "contract-paused", "client-1")
	if err != nil {
		t.Fatalf("client party activation failed: %v", err)
	}
	if activated.Status != string(entities.AgentClientActive) {
		t.Fatalf("expected active contract, got %s", activated.Status)
	}
}

func TestNotificationRelayDrainsOutbox(t *testing.T) {
	publisher := &recordingPublisher{}
	module := newDelegationModule(t, publisher)
	ctx := context.Background()

	startDelegationAs(t, module, "agent-1", "contract-1")

	if err := module.Relay.RunOnce(ctx); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}

	pending, err := module.Store.ListPendingOutbox(ctx, 50)
	if err != nil {
		t.Fatalf("list pending outbox: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected outbox drained, %d rows still pending", len(pending))
	}

	found := false
	for _, value := range publisher.values {
		envelope, ok := value.(events.Envelope)
		if !ok {
			t.Fatalf("expected events.Envelope, got %T", value)
		}
		if envelope.EventType == "delegation.started" {
			found = true
			if envelope.SourceService != "identity-access/delegation-service" {
				t.Fatalf("unexpected source_service %s", envelope.SourceService)
			}
		}
	}
	if !found {
		t.Fatalf("expected a delegation.started event, got %d events", len(publisher.values))
	}
}
