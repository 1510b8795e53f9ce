package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "flowsmartly/contexts/identity-access/delegation-service/application"
	"flowsmartly/contexts/identity-access/delegation-service/domain/entities"
	domainerrors "flowsmartly/contexts/identity-access/delegation-service/domain/errors"
	"flowsmartly/contexts/identity-access/delegation-service/ports"
)

// EngageAgentCommand creates a delegation contract between a client principal
// and an approved agent profile.
type EngageAgentCommand struct {
	ClientPrincipalID string
	AgentProfileID    string
	ActivateNow       bool
}

// EngageAgentResult carries the created contract.
type EngageAgentResult struct {
	Relationship entities.AgentClient `json:"relationship"`
}

// EngageAgentUseCase creates an AgentClient row; onboarding flows that skip
// the confirmation step pass ActivateNow.
type EngageAgentUseCase struct {
	Repository  ports.Repository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (u EngageAgentUseCase) Execute(ctx context.Context, cmd EngageAgentCommand) (EngageAgentResult, error) {
	logger := application.ResolveLogger(u.Logger)

	if strings.TrimSpace(cmd.ClientPrincipalID) == "" {
		return EngageAgentResult{}, domainerrors.ErrInvalidPrincipalID
	}
	if strings.TrimSpace(cmd.AgentProfileID) == "" {
		return EngageAgentResult{}, domainerrors.ErrInvalidProfileID
	}

	profile, found, err := u.Repository.GetAgentProfile(ctx, cmd.AgentProfileID)
	if err != nil {
		return EngageAgentResult{}, unavailable(err)
	}
	if !found {
		return EngageAgentResult{}, domainerrors.ErrProfileNotFound
	}
	if !profile.CanDelegate() {
		return EngageAgentResult{}, domainerrors.ErrAgentNotApproved
	}
	if profile.PrincipalID == cmd.ClientPrincipalID {
		return EngageAgentResult{}, domainerrors.ErrInvalidPrincipalID
	}

	agentClientID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return EngageAgentResult{}, err
	}

	relationship, err := u.Repository.CreateAgentClient(ctx, ports.CreateAgentClientInput{
		AgentClientID:     agentClientID,
		AgentProfileID:    cmd.AgentProfileID,
		ClientPrincipalID: cmd.ClientPrincipalID,
		Active:            cmd.ActivateNow,
		CreatedAt:         u.now(),
	})
	if err != nil {
		logger.Error("agent engagement write failed",
			"event", "agent_engage_write_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"agent_profile_id", cmd.AgentProfileID,
			"client_principal_id", cmd.ClientPrincipalID,
			"error", err.Error(),
		)
		return EngageAgentResult{}, err
	}

	logger.Info("agent engagement created",
		"event", "agent_engage_completed",
		"module", "identity-access/delegation-service",
		"layer", "application",
		"agent_client_id", relationship.AgentClientID,
		"agent_profile_id", cmd.AgentProfileID,
		"client_principal_id", cmd.ClientPrincipalID,
		"status", string(relationship.Status),
	)
	return EngageAgentResult{Relationship: relationship}, nil
}

func (u EngageAgentUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
