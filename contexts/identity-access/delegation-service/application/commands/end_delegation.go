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

// EndDelegationCommand closes the caller's open overlay, if any.
type EndDelegationCommand struct {
	PrincipalID string
	Reason      string
}

// EndDelegationResult reports Ended=false when nothing was open.
type EndDelegationResult struct {
	Session    entities.DelegationSession `json:"session"`
	Ended      bool                       `json:"ended"`
	AuditLogID string                     `json:"audit_log_id,omitempty"`
}

// EndDelegationUseCase is idempotent: a second end is a no-op success.
type EndDelegationUseCase struct {
	Repository  ports.Repository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (u EndDelegationUseCase) Execute(ctx context.Context, cmd EndDelegationCommand) (EndDelegationResult, error) {
	logger := application.ResolveLogger(u.Logger)

	if strings.TrimSpace(cmd.PrincipalID) == "" {
		return EndDelegationResult{}, domainerrors.ErrInvalidPrincipalID
	}

	profile, found, err := u.Repository.GetAgentProfileByPrincipal(ctx, cmd.PrincipalID)
	if err != nil {
		return EndDelegationResult{}, unavailable(err)
	}
	if !found {
		// A principal with no agent profile has no overlay to close.
		return EndDelegationResult{}, nil
	}

	auditLogID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return EndDelegationResult{}, err
	}
	outboxID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return EndDelegationResult{}, err
	}

	mutation, err := u.Repository.EndDelegation(ctx, ports.EndDelegationInput{
		AuditLogID:     auditLogID,
		OutboxID:       outboxID,
		AgentProfileID: profile.ProfileID,
		ClosedBy:       entities.ClosedByAgent,
		Reason:         strings.TrimSpace(cmd.Reason),
		EndedAt:        u.now(),
	})
	if err != nil {
		logger.Error("end delegation write failed",
			"event", "delegation_end_write_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"principal_id", cmd.PrincipalID,
			"error", err.Error(),
		)
		return EndDelegationResult{}, err
	}

	logger.Info("end delegation completed",
		"event", "delegation_end_completed",
		"module", "identity-access/delegation-service",
		"layer", "application",
		"principal_id", cmd.PrincipalID,
		"agent_profile_id", profile.ProfileID,
		"ended", mutation.Ended,
	)

	return EndDelegationResult{
		Session:    mutation.Session,
		Ended:      mutation.Ended,
		AuditLogID: mutation.AuditLogID,
	}, nil
}

func (u EndDelegationUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
