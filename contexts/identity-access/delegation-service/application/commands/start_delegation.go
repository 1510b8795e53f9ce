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

// StartDelegationCommand contains input for opening an impersonation overlay.
type StartDelegationCommand struct {
	PrincipalID   string
	AgentClientID string
	Reason        string
}

// StartDelegationResult carries the new session and the one it replaced.
type StartDelegationResult struct {
	Session         entities.DelegationSession `json:"session"`
	ReplacedSession bool                       `json:"replaced_session"`
	AuditLogID      string                     `json:"audit_log_id"`
}

// StartDelegationUseCase coordinates overlay start with precondition ordering
// and atomic close-then-open semantics.
type StartDelegationUseCase struct {
	Repository  ports.Repository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// Execute checks preconditions in order (first failure wins), closes any open
// session for the caller's agent profile, and opens the new one.
func (u StartDelegationUseCase) Execute(ctx context.Context, cmd StartDelegationCommand) (StartDelegationResult, error) {
	logger := application.ResolveLogger(u.Logger)

	if strings.TrimSpace(cmd.PrincipalID) == "" {
		return StartDelegationResult{}, domainerrors.ErrInvalidPrincipalID
	}
	if strings.TrimSpace(cmd.AgentClientID) == "" {
		return StartDelegationResult{}, domainerrors.ErrInvalidAgentClientID
	}

	logger.Info("start delegation requested",
		"event", "delegation_start_requested",
		"module", "identity-access/delegation-service",
		"layer", "application",
		"principal_id", cmd.PrincipalID,
		"agent_client_id", cmd.AgentClientID,
	)

	profile, found, err := u.Repository.GetAgentProfileByPrincipal(ctx, cmd.PrincipalID)
	if err != nil {
		return StartDelegationResult{}, unavailable(err)
	}
	if !found {
		return StartDelegationResult{}, domainerrors.ErrNotAnAgent
	}
	if !profile.CanDelegate() {
		return StartDelegationResult{}, domainerrors.ErrAgentNotApproved
	}

	relationship, found, err := u.Repository.GetAgentClient(ctx, cmd.AgentClientID)
	if err != nil {
		return StartDelegationResult{}, unavailable(err)
	}
	// Same error for "does not exist" and "belongs to another agent" so the
	// response never leaks which relationships exist.
	if !found || relationship.AgentProfileID != profile.ProfileID {
		return StartDelegationResult{}, domainerrors.ErrRelationshipNotFound
	}
	if !relationship.IsDelegatable() {
		return StartDelegationResult{}, domainerrors.ErrRelationshipNotActive
	}

	// A soft-deleted client cannot be impersonated; the contract reads as
	// inactive until the account comes back.
	client, err := u.Repository.GetPrincipal(ctx, relationship.ClientPrincipalID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrPrincipalNotFound) {
			return StartDelegationResult{}, domainerrors.ErrRelationshipNotActive
		}
		return StartDelegationResult{}, unavailable(err)
	}
	if client.IsDisabled() {
		return StartDelegationResult{}, domainerrors.ErrRelationshipNotActive
	}

	sessionID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return StartDelegationResult{}, err
	}
	auditLogID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return StartDelegationResult{}, err
	}
	outboxID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return StartDelegationResult{}, err
	}

	mutation, err := u.Repository.StartDelegation(ctx, ports.StartDelegationInput{
		SessionID:         sessionID,
		AuditLogID:        auditLogID,
		OutboxID:          outboxID,
		AgentProfileID:    profile.ProfileID,
		AgentPrincipalID:  cmd.PrincipalID,
		ClientPrincipalID: relationship.ClientPrincipalID,
		AgentClientID:     relationship.AgentClientID,
		Reason:            strings.TrimSpace(cmd.Reason),
		StartedAt:         u.now(),
	})
	if err != nil {
		logger.Error("start delegation write failed",
			"event", "delegation_start_write_failed",
			"module", "identity-access/delegation-service",
			"layer", "application",
			"principal_id", cmd.PrincipalID,
			"agent_client_id", cmd.AgentClientID,
			"error", err.Error(),
		)
		return StartDelegationResult{}, err
	}

	logger.Info("start delegation completed",
		"event", "delegation_start_completed",
		"module", "identity-access/delegation-service",
		"layer", "application",
		"session_id", mutation.Session.SessionID,
		"agent_profile_id", profile.ProfileID,
		"client_principal_id", relationship.ClientPrincipalID,
		"replaced_session", mutation.ClosedSession != nil,
	)

	return StartDelegationResult{
		Session:         mutation.Session,
		ReplacedSession: mutation.ClosedSession != nil,
		AuditLogID:      mutation.AuditLogID,
	}, nil
}

func (u StartDelegationUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
