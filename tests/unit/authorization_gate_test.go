package unit

import (
	"context"
	"errors"
	"testing"

	"flowsmartly/contexts/identity-access/delegation-service/application/queries"
	"flowsmartly/contexts/identity-access/delegation-service/domain/entities"
	domainerrors "flowsmartly/contexts/identity-access/delegation-service/domain/errors"
)

func TestGateAllowsDirectFinancialAction(t *testing.T) {
	module := newDelegationModule(t, nil)
	ctx := context.Background()

	allowed, actorID, err := module.Gate.CheckFinancialAction(ctx, "tok-agent-1", "payout_request")
	if err != nil {
		t.Fatalf("gate check failed: %v", err)
	}
	if !allowed {
		t.Fatalf("non-delegated agent must be allowed to request a payout")
	}
	if actorID != "agent-1" {
		t.Fatalf("direct action must act as the agent, got %s", actorID)
	}
}

func TestGateDeniesRestrictedActionWhileDelegated(t *testing.T) {
	module := newDelegationModule(t, nil)
	ctx := context.Background()

	startDelegationAs(t, module, "agent-1", "contract-1")

	for _, actionKind := range []string{"payout_request", "balance_update", "payment_method_change", "billing_profile_update"} {
		allowed, actorID, err := module.Gate.CheckFinancialAction(ctx, "tok-agent-1", actionKind)
		if err != nil {
			t.Fatalf("gate check for %s failed: %v", actionKind, err)
		}
		if allowed {
			t.Fatalf("%s must be denied during delegation", actionKind)
		}
		if actorID != "client-1" {
			t.Fatalf("effective actor during delegation must be the client, got %s", actorID)
		}
	}
}

func TestGateRecordsDenialInAuditLog(t *testing.T) {
	module := newDelegationModule(t, nil)
	ctx := context.Background()

	startDelegationAs(t, module, "agent-1", "contract-1")
	if _, _, err := module.Gate.CheckFinancialAction(ctx, "tok-agent-1", "payout_request"); err != nil {
		t.Fatalf("gate check failed: %v", err)
	}

	audit, err := module.Handler.ListAuditHandler(ctx, queries.ListAuditEntriesQuery{
		Action: entities.AuditRestrictedDenied,
	})
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(audit.Entries) == 0 {
		t.Fatalf("expected a restricted_action_denied audit entry")
	}
	entry := audit.Entries[0]
	if entry.ActorID != "agent-1" {
		t.Fatalf("denial must be attributed to the agent principal, got %s", entry.ActorID)
	}
	if entry.TargetID != "payout_request" {
		t.Fatalf("denial must record the action kind, got %s", entry.TargetID)
	}
}

func TestGateAllowsUnrestrictedActionWhileDelegated(t *testing.T) {
	module := newDelegationModule(t, nil)
	ctx := context.Background()

	startDelegationAs(t, module, "agent-1", "contract-1")

	allowed, actorID, err := module.Gate.CheckFinancialAction(ctx, "tok-agent-1", "campaign_update")
	if err != nil {
		t.Fatalf("gate check failed: %v", err)
	}
	if !allowed {
		t.Fatalf("non-financial actions stay allowed during delegation")
	}
	if actorID != "client-1" {
		t.Fatalf("delegated actor must be the client, got %s", actorID)
	}
}

func TestGateAssertOwnershipFollowsEffectiveActor(t *testing.T) {
	module := newDelegationModule(t, nil)
	ctx := context.Background()

	if err := module.Gate.AssertOwnership(ctx, "tok-agent-1", "agent-1"); err != nil {
		t.Fatalf("direct actor must own its own resources: %v", err)
	}
	if err := module.Gate.AssertOwnership(ctx, "tok-agent-1", "client-1"); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("direct actor must not own another principal's resources, got %v", err)
	}

	startDelegationAs(t, module, "agent-1", "contract-1")

	if err := module.Gate.AssertOwnership(ctx, "tok-agent-1", "client-1"); err != nil {
		t.Fatalf("delegated actor must own the client's resources: %v", err)
	}
	if err := module.Gate.AssertOwnership(ctx, "tok-agent-1", "agent-1"); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("delegated actor must not reach the agent's own resources, got %v", err)
	}
}

func TestGatePropagatesResolverErrors(t *testing.T) {
	module := newDelegationModule(t, nil)

	_, _, err := module.Gate.CheckFinancialAction(context.Background(), "tok-unknown", "payout_request")
	if err == nil {
		t.Fatalf("unknown credential must surface an error, not a silent allow")
	}
}
