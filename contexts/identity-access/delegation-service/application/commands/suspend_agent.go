package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "flowsmartly/contexts/identity-access/delegation-service/application"
	"flowsmartly/contexts/identity-access/delegation-service/domain/entities"
	domainerrors "flowsmartly/contexts/identity-access/delegation-service/domain/errors"
	"flowsmartly/contexts/identity-access/delegation-service/ports"
)

// SuspendAgentCommand suspends an approved agent profile.
type SuspendAgentCommand struct {
	ProfileID string
	AdminID   string
	Reason    string
}

// SuspendAgentResult reports whether an open overlay was force-closed as part
// of the same operation.
type SuspendAgentResult struct {
	Profile       entities.AgentProfile `json:"profile"`
	SessionClosed bool                  `json:"session_closed"`
	AuditLogID    string                `json:"audit_log_id"`
}

// SuspendAgentUseCase marks the profile SUSPENDED and closes any open
// delegation session in the same repository transaction. The cascade is
// synchronous: a suspended agent loses impersonation access immediately.
type SuspendAgentUseCase struct {
	Repository  ports.Repository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (u SuspendAgentUseCase) Execute(ctx context.Context, cmd SuspendAgentCommand) (SuspendAgentResult, error) {
	logger := application.ResolveLogger(u.Logger)

	if strings.TrimSpace(cmd.ProfileID) == "" {
		return SuspendAgentResult{}, domainerrors.ErrInvalidProfileID
	}
	if strings.TrimSpace(cmd.AdminID) == "" {
		return SuspendAgentResult{}, domainerrors.ErrInvalidPrincipalID
	}

	admin, err := u.Repository.GetPrincipal(ctx, cmd.AdminID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrPrincipalNotFound) {
			return SuspendAgentResult{}, domainerrors.ErrForbidden
		}
		return SuspendAgentResult{}, unavailable(err)
	}
	if !admin.IsAdmin() {
		return SuspendAgentResult{}, domainerrors.ErrForbidden
	}

	profile, found, err := u.Repository.GetAgentProfile(ctx, cmd.ProfileID)
	if err != nil {
		return SuspendAgentResult{}, unavailable(err)
	}
	if !found {
		return SuspendAgentResult{}, domainerrors.ErrProfileNotFound
	}
	if profile.Status != entities.AgentProfileApproved {
		return SuspendAgentResult{}, domainerrors.ErrAgentNotApproved
	}

	auditLogID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return SuspendAgentResult{}, err
	}
	sessionAuditLogID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return SuspendAgentResult{}, err
	}
	outboxID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return SuspendAgentResult{}, err
	}

	mutation, err := u.Repository.SuspendAgent(ctx, ports.SuspendAgentInput{
		AuditLogID:        auditLogID,
		SessionAuditLogID: sessionAuditLogID,
		OutboxID:          outboxID,
		ProfileID:         cmd.ProfileID,
		AdminID:           cmd.AdminID,
		Reason:            strings.TrimSpace(cmd.Reason),
		SuspendedAt:       u.now(),
	})
	if err != nil {
		logger.Error("agent suspension write failed",
			"event", "agent_suspend_write_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"agent_profile_id", cmd.ProfileID,
			"admin_id", cmd.AdminID,
			"error", err.Error(),
		)
		return SuspendAgentResult{}, err
	}

	logger.Info("agent suspension completed",
		"event", "agent_suspend_completed",
		"module", "identity-access/delegation-service",
		"layer", "application",
		"agent_profile_id", cmd.ProfileID,
		"admin_id", cmd.AdminID,
		"session_closed", mutation.ClosedSession != nil,
	)

	return SuspendAgentResult{
		Profile:       mutation.Profile,
		SessionClosed: mutation.ClosedSession != nil,
		AuditLogID:    mutation.AuditLogID,
	}, nil
}

func (u SuspendAgentUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
