package gateadapter

import (
	"context"
	"log/slog"
	"time"

	application "flowsmartly/contexts/identity-access/delegation-service/application"
	"flowsmartly/contexts/identity-access/delegation-service/application/queries"
	"flowsmartly/contexts/identity-access/delegation-service/domain/entities"
	"flowsmartly/contexts/identity-access/delegation-service/domain/services"
	"flowsmartly/contexts/identity-access/delegation-service/ports"
	"github.com/google/uuid"
)

// Gate is the authorization checkpoint financial modules call before any
// money-touching mutation. It resolves the effective actor behind the
// credential and denies restricted actions while an impersonation overlay is
// active. Errors from the session layer or the store surface as errors; the
// caller must treat them as deny.
type Gate struct {
	EffectiveActor queries.ResolveEffectiveActorUseCase
	Audit          ports.AuditLog
	Clock          ports.Clock
	Logger         *slog.Logger
}

// CheckFinancialAction returns whether the action may proceed and the
// effective actor id to use for ownership checks. A denied restricted action
// is recorded in the audit log with the agent, not the client, as the actor.
func (g Gate) CheckFinancialAction(ctx context.Context, credential string, actionKind string) (bool, string, error) {
	logger := application.ResolveLogger(g.Logger)

	actor, err := g.EffectiveActor.Execute(ctx, credential)
	if err != nil {
		return false, "", err
	}

	if !services.IsRestrictedAction(actor, actionKind) {
		return true, actor.ActorID, nil
	}

	logger.Warn("restricted financial action denied while delegated",
		"event", "delegation_restricted_action_denied",
		"module", "identity-access/delegation-service",
		"layer", "adapter",
		"agent_principal_id", actor.AgentPrincipalID,
		"client_principal_id", actor.ActorID,
		"action_kind", actionKind,
	)

	// The deny stands even if the audit append fails; the structured log
	// above keeps a trace either way.
	now := time.Now().UTC()
	if g.Clock != nil {
		now = g.Clock.Now().UTC()
	}
	if g.Audit != nil {
		if auditErr := g.Audit.AppendAudit(ctx, entities.AuditEntry{
			EntryID:     uuid.NewString(),
			ActorID:     actor.AgentPrincipalID,
			Action:      entities.AuditRestrictedDenied,
			TargetType:  "financial_action",
			TargetID:    actionKind,
			Description: "restricted while impersonating " + actor.ActorID,
			CreatedAt:   now,
		}); auditErr != nil {
			logger.Error("restricted action audit append failed",
				"event", "delegation_restricted_audit_failed",
				"module", "identity-access/delegation-service",
				"layer", "adapter",
				"action_kind", actionKind,
				"error", auditErr.Error(),
			)
		}
	}
	return false, actor.ActorID, nil
}

// AssertOwnership verifies that the credential's effective actor owns the
// resource. Financial modules call it after loading owner-keyed state so an
// actor can never act on somebody else's records.
func (g Gate) AssertOwnership(ctx context.Context, credential string, resourceOwnerID string) error {
	actor, err := g.EffectiveActor.Execute(ctx, credential)
	if err != nil {
		return err
	}
	return services.AssertOwnership(actor, resourceOwnerID)
}
