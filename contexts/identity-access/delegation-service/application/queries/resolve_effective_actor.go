package queries

import (
	"context"
	"log/slog"

	application "flowsmartly/contexts/identity-access/delegation-service/application"
	"flowsmartly/contexts/identity-access/delegation-service/domain/entities"
	"flowsmartly/contexts/identity-access/delegation-service/ports"
)

// ResolveEffectiveActorUseCase is the single choke point routes use to learn
// who is acting: the session layer resolves the login, then the open overlay
// (if any) substitutes the client as the effective actor.
type ResolveEffectiveActorUseCase struct {
	Sessions         ports.SessionResolver
	ActiveDelegation GetActiveDelegationUseCase
	Logger           *slog.Logger
}

// Execute returns a tagged actor. Session errors pass through unchanged so
// the transport keeps its authentication taxonomy; store failures surface as
// ErrAuthorizationUnavailable, which callers treat as deny.
func (u ResolveEffectiveActorUseCase) Execute(ctx context.Context, credential string) (entities.EffectiveActor, error) {
	logger := application.ResolveLogger(u.Logger)

	principalID, err := u.Sessions.ResolvePrincipal(ctx, credential)
	if err != nil {
		return entities.EffectiveActor{}, err
	}

	view, err := u.ActiveDelegation.Execute(ctx, principalID)
	if err != nil {
		logger.Error("effective actor resolution failed, deny",
			"event", "effective_actor_resolution_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"principal_id", principalID,
			"error", err.Error(),
		)
		return entities.EffectiveActor{}, err
	}

	if !view.IsImpersonating {
		return entities.EffectiveActor{
			Kind:    entities.ActorDirect,
			ActorID: principalID,
		}, nil
	}

	return entities.EffectiveActor{
		Kind:             entities.ActorDelegated,
		ActorID:          view.ClientPrincipalID,
		AgentPrincipalID: principalID,
		AgentProfileID:   view.AgentProfileID,
		StartedAt:        view.StartedAt,
	}, nil
}
