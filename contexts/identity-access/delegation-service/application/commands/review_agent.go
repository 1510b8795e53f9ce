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

// ReviewAgentCommand is an administrative approve/reject decision on a
// pending profile.
type ReviewAgentCommand struct {
	ProfileID string
	AdminID   string
	Approve   bool
	Reason    string
}

// ReviewAgentResult carries the updated profile.
type ReviewAgentResult struct {
	Profile entities.AgentProfile `json:"profile"`
}

// ReviewAgentUseCase transitions PENDING profiles to APPROVED or REJECTED.
type ReviewAgentUseCase struct {
	Repository  ports.Repository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (u ReviewAgentUseCase) Execute(ctx context.Context, cmd ReviewAgentCommand) (ReviewAgentResult, error) {
	logger := application.ResolveLogger(u.Logger)

	if strings.TrimSpace(cmd.ProfileID) == "" {
		return ReviewAgentResult{}, domainerrors.ErrInvalidProfileID
	}
	if strings.TrimSpace(cmd.AdminID) == "" {
		return ReviewAgentResult{}, domainerrors.ErrInvalidPrincipalID
	}
	if !cmd.Approve && strings.TrimSpace(cmd.Reason) == "" {
		return ReviewAgentResult{}, domainerrors.ErrInvalidReviewDecision
	}

	admin, err := u.Repository.GetPrincipal(ctx, cmd.AdminID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrPrincipalNotFound) {
			return ReviewAgentResult{}, domainerrors.ErrForbidden
		}
		return ReviewAgentResult{}, unavailable(err)
	}
	if !admin.IsAdmin() {
		return ReviewAgentResult{}, domainerrors.ErrForbidden
	}

	profile, found, err := u.Repository.GetAgentProfile(ctx, cmd.ProfileID)
	if err != nil {
		return ReviewAgentResult{}, unavailable(err)
	}
	if !found {
		return ReviewAgentResult{}, domainerrors.ErrProfileNotFound
	}
	// Reviews on one's own application are rejected even for administrators.
	if profile.PrincipalID == cmd.AdminID {
		return ReviewAgentResult{}, domainerrors.ErrForbidden
	}
	if profile.Status != entities.AgentProfilePending {
		return ReviewAgentResult{}, domainerrors.ErrProfileNotPending
	}

	auditLogID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return ReviewAgentResult{}, err
	}
	outboxID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return ReviewAgentResult{}, err
	}

	updated, err := u.Repository.ReviewAgentProfile(ctx, ports.ReviewAgentInput{
		AuditLogID: auditLogID,
		OutboxID:   outboxID,
		ProfileID:  cmd.ProfileID,
		AdminID:    cmd.AdminID,
		Approve:    cmd.Approve,
		Reason:     strings.TrimSpace(cmd.Reason),
		ReviewedAt: u.now(),
	})
	if err != nil {
		logger.Error("agent review write failed",
			"event", "agent_review_write_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"agent_profile_id", cmd.ProfileID,
			"admin_id", cmd.AdminID,
			"error", err.Error(),
		)
		return ReviewAgentResult{}, err
	}

	logger.Info("agent review completed",
		"event", "agent_review_completed",
		"module", "identity-access/delegation-service",
		"layer", "application",
		"agent_profile_id", cmd.ProfileID,
		"admin_id", cmd.AdminID,
		"approved", cmd.Approve,
	)
	return ReviewAgentResult{Profile: updated}, nil
}

func (u ReviewAgentUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
