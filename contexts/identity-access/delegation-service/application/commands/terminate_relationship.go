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

// TerminateRelationshipCommand ends a delegation contract. Either party (or
// the system) may terminate; termination is terminal.
type TerminateRelationshipCommand struct {
	AgentClientID string
	ActorID       string
	TerminatedBy  entities.Terminator
	Reason        string
}

// TerminateRelationshipResult carries the terminated contract.
type TerminateRelationshipResult struct {
	Relationship entities.AgentClient `json:"relationship"`
}

// TerminateRelationshipUseCase validates the caller is one of the contract's
// parties before terminating. It also ends any overlay currently running on
// the contract's agent profile.
type TerminateRelationshipUseCase struct {
	Repository  ports.Repository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (u TerminateRelationshipUseCase) Execute(ctx context.Context, cmd TerminateRelationshipCommand) (TerminateRelationshipResult, error) {
	logger := application.ResolveLogger(u.Logger)

	if strings.TrimSpace(cmd.AgentClientID) == "" {
		return TerminateRelationshipResult{}, domainerrors.ErrInvalidAgentClientID
	}

	relationship, found, err := u.Repository.GetAgentClient(ctx, cmd.AgentClientID)
	if err != nil {
		return TerminateRelationshipResult{}, unavailable(err)
	}
	if !found {
		return TerminateRelationshipResult{}, domainerrors.ErrRelationshipNotFound
	}
	if relationship.Status == entities.AgentClientTerminated {
		return TerminateRelationshipResult{}, domainerrors.ErrRelationshipTerminated
	}

	if cmd.TerminatedBy != entities.TerminatedBySystem {
		profile, profileFound, err := u.Repository.GetAgentProfile(ctx, relationship.AgentProfileID)
		if err != nil {
			return TerminateRelationshipResult{}, unavailable(err)
		}
		// The caller must own one side of the contract; anyone else sees it
		// as missing.
		caller := entities.EffectiveActor{Kind: entities.ActorDirect, ActorID: cmd.ActorID}
		clientSide := services.AssertOwnership(caller, relationship.ClientPrincipalID)
		agentSide := domainerrors.ErrForbidden
		if profileFound {
			agentSide = services.AssertOwnership(caller, profile.PrincipalID)
		}
		if clientSide != nil && agentSide != nil {
			return TerminateRelationshipResult{}, domainerrors.ErrRelationshipNotFound
		}
	}

	auditLogID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return TerminateRelationshipResult{}, err
	}
	outboxID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return TerminateRelationshipResult{}, err
	}

	updated, err := u.Repository.TerminateAgentClient(ctx, ports.TerminateAgentClientInput{
		AuditLogID:    auditLogID,
		OutboxID:      outboxID,
		AgentClientID: cmd.AgentClientID,
		TerminatedBy:  cmd.TerminatedBy,
		ActorID:       cmd.ActorID,
		Reason:        strings.TrimSpace(cmd.Reason),
		TerminatedAt:  u.now(),
	})
	if err != nil {
		logger.Error("relationship termination write failed",
			"event", "relationship_terminate_write_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"agent_client_id", cmd.AgentClientID,
			"terminated_by", string(cmd.TerminatedBy),
			"error", err.Error(),
		)
		return TerminateRelationshipResult{}, err
	}

	logger.Info("relationship terminated",
		"event", "relationship_terminate_completed",
		"module", "identity-access/delegation-service",
		"layer", "application",
		"agent_client_id", cmd.AgentClientID,
		"terminated_by", string(cmd.TerminatedBy),
	)
	return TerminateRelationshipResult{Relationship: updated}, nil
}

func (u TerminateRelationshipUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
