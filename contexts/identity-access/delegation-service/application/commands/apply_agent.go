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

// ApplyAgentCommand creates a pending agent profile for a principal.
type ApplyAgentCommand struct {
	PrincipalID string
}

// ApplyAgentResult carries the created profile.
type ApplyAgentResult struct {
	Profile entities.AgentProfile `json:"profile"`
}

// ApplyAgentUseCase enforces the one-profile-per-principal constraint.
type ApplyAgentUseCase struct {
	Repository  ports.Repository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (u ApplyAgentUseCase) Execute(ctx context.Context, cmd ApplyAgentCommand) (ApplyAgentResult, error) {
	logger := application.ResolveLogger(u.Logger)

	if strings.TrimSpace(cmd.PrincipalID) == "" {
		return ApplyAgentResult{}, domainerrors.ErrInvalidPrincipalID
	}

	if _, err := u.Repository.GetPrincipal(ctx, cmd.PrincipalID); err != nil {
		return ApplyAgentResult{}, err
	}
	if _, exists, err := u.Repository.GetAgentProfileByPrincipal(ctx, cmd.PrincipalID); err != nil {
		return ApplyAgentResult{}, unavailable(err)
	} else if exists {
		return ApplyAgentResult{}, domainerrors.ErrAgentAlreadyApplied
	}

	profileID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return ApplyAgentResult{}, err
	}

	profile, err := u.Repository.CreateAgentProfile(ctx, ports.CreateAgentProfileInput{
		ProfileID:   profileID,
		PrincipalID: cmd.PrincipalID,
		CreatedAt:   u.now(),
	})
	if err != nil {
		logger.Error("agent application write failed",
			"event", "agent_apply_write_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"principal_id", cmd.PrincipalID,
			"error", err.Error(),
		)
		return ApplyAgentResult{}, err
	}

	logger.Info("agent application created",
		"event", "agent_apply_completed",
		"module", "identity-access/delegation-service",
		"layer", "application",
		"principal_id", cmd.PrincipalID,
		"agent_profile_id", profile.ProfileID,
	)
	return ApplyAgentResult{Profile: profile}, nil
}

func (u ApplyAgentUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
