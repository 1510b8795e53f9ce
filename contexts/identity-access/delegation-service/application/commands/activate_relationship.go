package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "flowsmartly/contexts/identity-access/delegation-service/application"
	"flowsmartly/contexts/identity-access/delegation-service/domain/entities"
	domainerrors "flowsmartly/contexts/identity-access/delegation-service/domain/errors"
	"flowsmartly/contexts/identity-access/delegation-service/domain/services"
	"flowsmartly/contexts/identity-access/delegation-service/ports"
)

// ActivateRelationshipCommand confirms a pending engagement. Only the client
// side activates.
type ActivateRelationshipCommand struct {
	AgentClientID     string
	ClientPrincipalID string
}

// ActivateRelationshipResult carries the activated contract.
type ActivateRelationshipResult struct {
	Relationship entities.AgentClient `json:"relationship"`
}

// ActivateRelationshipUseCase transitions PENDING contracts to ACTIVE.
type ActivateRelationshipUseCase struct {
	Repository ports.Repository
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (u ActivateRelationshipUseCase) Execute(ctx context.Context, cmd ActivateRelationshipCommand) (ActivateRelationshipResult, error) {
	logger := application.ResolveLogger(u.Logger)

	if strings.TrimSpace(cmd.AgentClientID) == "" {
		return ActivateRelationshipResult{}, domainerrors.ErrInvalidAgentClientID
	}

	relationship, found, err := u.Repository.GetAgentClient(ctx, cmd.AgentClientID)
	if err != nil {
		return ActivateRelationshipResult{}, unavailable(err)
	}
	if !found {
		return ActivateRelationshipResult{}, domainerrors.ErrRelationshipNotFound
	}
	// Non-party lookups read as missing so contract ids never leak.
	caller := entities.EffectiveActor{Kind: entities.ActorDirect, ActorID: cmd.ClientPrincipalID}
	if services.AssertOwnership(caller, relationship.ClientPrincipalID) != nil {
		return ActivateRelationshipResult{}, domainerrors.ErrRelationshipNotFound
	}
	if relationship.Status == entities.AgentClientTerminated {
		return ActivateRelationshipResult{}, domainerrors.ErrRelationshipTerminated
	}
	if relationship.Status == entities.AgentClientActive {
		return ActivateRelationshipResult{Relationship: relationship}, nil
	}

	updated, err := u.Repository.ActivateAgentClient(ctx, cmd.AgentClientID, u.now())
	if err != nil {
		logger.Error("relationship activation write failed",
			"event", "relationship_activate_write_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"agent_client_id", cmd.AgentClientID,
			"error", err.Error(),
		)
		return ActivateRelationshipResult{}, err
	}

	logger.Info("relationship activated",
		"event", "relationship_activate_completed",
		"module", "identity-access/delegation-service",
		"layer", "application",
		"agent_client_id", cmd.AgentClientID,
	)
	return ActivateRelationshipResult{Relationship: updated}, nil
}

func (u ActivateRelationshipUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
