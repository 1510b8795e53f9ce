package httpadapter

import (
	"context"
	"log/slog"

	application "flowsmartly/contexts/identity-access/delegation-service/application"
	"flowsmartly/contexts/identity-access/delegation-service/application/commands"
	"flowsmartly/contexts/identity-access/delegation-service/application/queries"
	"flowsmartly/contexts/identity-access/delegation-service/domain/entities"
	httptransport "flowsmartly/contexts/identity-access/delegation-service/transport/http"
)

const clientDashboardPath = "/dashboard/client"
const agentDashboardPath = "/dashboard/agent"

// Handler maps HTTP DTOs to application commands/queries.
type Handler struct {
	StartDelegation       commands.StartDelegationUseCase
	EndDelegation         commands.EndDelegationUseCase
	ApplyAgent            commands.ApplyAgentUseCase
	ReviewAgent           commands.ReviewAgentUseCase
	SuspendAgent          commands.SuspendAgentUseCase
	EngageAgent           commands.EngageAgentUseCase
	ActivateRelationship  commands.ActivateRelationshipUseCase
	TerminateRelationship commands.TerminateRelationshipUseCase
	ActiveDelegation      queries.GetActiveDelegationUseCase
	EffectiveActor        queries.ResolveEffectiveActorUseCase
	ListAudit             queries.ListAuditEntriesUseCase
	Logger                *slog.Logger
}

// StartDelegationHandler opens the overlay for the authenticated agent.
func (h Handler) StartDelegationHandler(
	ctx context.Context,
	principalID string,
	request httptransport.StartDelegationRequest,
) (httptransport.StartDelegationResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("http delegation start received",
		"event", "delegation_http_start_received",
		"module", "identity-access/delegation-service",
		"layer", "transport",
		"principal_id", principalID,
		"agent_client_id", request.AgentClientID,
	)

	result, err := h.StartDelegation.Execute(ctx, commands.StartDelegationCommand{
		PrincipalID:   principalID,
		AgentClientID: request.AgentClientID,
		Reason:        request.Reason,
	})
	if err != nil {
		logger.Error("http delegation start failed",
			"event", "delegation_http_start_failed",
			"module", "identity-access/delegation-service",
			"layer", "transport",
			"principal_id", principalID,
			"agent_client_id", request.AgentClientID,
			"error", err.Error(),
		)
		return httptransport.StartDelegationResponse{}, err
	}
	return httptransport.StartDelegationResponse{
		SessionID:         result.Session.SessionID,
		AgentClientID:     result.Session.AgentClientID,
		ClientPrincipalID: result.Session.ClientPrincipalID,
		StartedAt:         result.Session.StartedAt,
		ReplacedSession:   result.ReplacedSession,
		AuditLogID:        result.AuditLogID,
		RedirectTo:        clientDashboardPath,
	}, nil
}

// EndDelegationHandler closes the overlay. Safe to call with nothing open.
func (h Handler) EndDelegationHandler(
	ctx context.Context,
	principalID string,
	request httptransport.EndDelegationRequest,
) (httptransport.EndDelegationResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("http delegation end received",
		"event", "delegation_http_end_received",
		"module", "identity-access/delegation-service",
		"layer", "transport",
		"principal_id", principalID,
	)

	result, err := h.EndDelegation.Execute(ctx, commands.EndDelegationCommand{
		PrincipalID: principalID,
		Reason:      request.Reason,
	})
	if err != nil {
		logger.Error("http delegation end failed",
			"event", "delegation_http_end_failed",
			"module", "identity-access/delegation-service",
			"layer", "transport",
			"principal_id", principalID,
			"error", err.Error(),
		)
		return httptransport.EndDelegationResponse{}, err
	}
	response := httptransport.EndDelegationResponse{
		Ended:      result.Ended,
		AuditLogID: result.AuditLogID,
		RedirectTo: agentDashboardPath,
	}
	if result.Ended {
		response.SessionID = result.Session.SessionID
		response.EndedAt = result.Session.EndedAt
	}
	return response, nil
}

// DelegationStatusHandler reports whether the principal is impersonating.
func (h Handler) DelegationStatusHandler(ctx context.Context, principalID string) (httptransport.DelegationStatusResponse, error) {
	view, err := h.ActiveDelegation.Execute(ctx, principalID)
	if err != nil {
		return httptransport.DelegationStatusResponse{}, err
	}
	return httptransport.DelegationStatusResponse{
		IsImpersonating:   view.IsImpersonating,
		ClientPrincipalID: view.ClientPrincipalID,
		AgentProfileID:    view.AgentProfileID,
		AgentClientID:     view.AgentClientID,
		StartedAt:         view.StartedAt,
	}, nil
}

// ApplyAgentHandler registers the authenticated principal as a pending agent.
func (h Handler) ApplyAgentHandler(ctx context.Context, principalID string) (httptransport.ApplyAgentResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("http agent apply received",
		"event", "delegation_http_apply_received",
		"module", "identity-access/delegation-service",
		"layer", "transport",
		"principal_id", principalID,
	)

	result, err := h.ApplyAgent.Execute(ctx, commands.ApplyAgentCommand{PrincipalID: principalID})
	if err != nil {
		logger.Error("http agent apply failed",
			"event", "delegation_http_apply_failed",
			"module", "identity-access/delegation-service",
			"layer", "transport",
			"principal_id", principalID,
			"error", err.Error(),
		)
		return httptransport.ApplyAgentResponse{}, err
	}
	return httptransport.ApplyAgentResponse{
		ProfileID:   result.Profile.ProfileID,
		PrincipalID: result.Profile.PrincipalID,
		Status:      string(result.Profile.Status),
		CreatedAt:   result.Profile.CreatedAt,
	}, nil
}

// ReviewAgentHandler approves or rejects a pending application.
func (h Handler) ReviewAgentHandler(
	ctx context.Context,
	profileID string,
	adminID string,
	request httptransport.ReviewAgentRequest,
) (httptransport.AgentProfileDTO, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("http agent review received",
		"event", "delegation_http_review_received",
		"module", "identity-access/delegation-service",
		"layer", "transport",
		"agent_profile_id", profileID,
		"admin_id", adminID,
		"approve", request.Approve,
	)

	result, err := h.ReviewAgent.Execute(ctx, commands.ReviewAgentCommand{
		ProfileID: profileID,
		AdminID:   adminID,
		Approve:   request.Approve,
		Reason:    request.Reason,
	})
	if err != nil {
		logger.Error("http agent review failed",
			"event", "delegation_http_review_failed",
			"module", "identity-access/delegation-service",
			"layer", "transport",
			"agent_profile_id", profileID,
			"admin_id", adminID,
			"error", err.Error(),
		)
		return httptransport.AgentProfileDTO{}, err
	}
	return agentProfileDTO(result.Profile), nil
}

// SuspendAgentHandler suspends an approved agent and cascades the overlay close.
func (h Handler) SuspendAgentHandler(
	ctx context.Context,
	profileID string,
	adminID string,
	request httptransport.SuspendAgentRequest,
) (httptransport.SuspendAgentResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("http agent suspend received",
		"event", "delegation_http_suspend_received",
		"module", "identity-access/delegation-service",
		"layer", "transport",
		"agent_profile_id", profileID,
		"admin_id", adminID,
	)

	result, err := h.SuspendAgent.Execute(ctx, commands.SuspendAgentCommand{
		ProfileID: profileID,
		AdminID:   adminID,
		Reason:    request.Reason,
	})
	if err != nil {
		logger.Error("http agent suspend failed",
			"event", "delegation_http_suspend_failed",
			"module", "identity-access/delegation-service",
			"layer", "transport",
			"agent_profile_id", profileID,
			"admin_id", adminID,
			"error", err.Error(),
		)
		return httptransport.SuspendAgentResponse{}, err
	}
	return httptransport.SuspendAgentResponse{
		Profile:       agentProfileDTO(result.Profile),
		SessionClosed: result.SessionClosed,
		AuditLogID:    result.AuditLogID,
	}, nil
}

// EngageAgentHandler creates an agent-client contract for the caller.
func (h Handler) EngageAgentHandler(
	ctx context.Context,
	clientPrincipalID string,
	request httptransport.EngageAgentRequest,
) (httptransport.AgentClientDTO, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("http engage agent received",
		"event", "delegation_http_engage_received",
		"module", "identity-access/delegation-service",
		"layer", "transport",
		"client_principal_id", clientPrincipalID,
		"agent_profile_id", request.AgentProfileID,
	)

	result, err := h.EngageAgent.Execute(ctx, commands.EngageAgentCommand{
		ClientPrincipalID: clientPrincipalID,
		AgentProfileID:    request.AgentProfileID,
		ActivateNow:       request.ActivateNow,
	})
	if err != nil {
		logger.Error("http engage agent failed",
			"event", "delegation_http_engage_failed",
			"module", "identity-access/delegation-service",
			"layer", "transport",
			"client_principal_id", clientPrincipalID,
			"agent_profile_id", request.AgentProfileID,
			"error", err.Error(),
		)
		return httptransport.AgentClientDTO{}, err
	}
	return agentClientDTO(result.Relationship), nil
}

// ActivateRelationshipHandler confirms a pending contract. Client-only.
func (h Handler) ActivateRelationshipHandler(
	ctx context.Context,
	agentClientID string,
	clientPrincipalID string,
) (httptransport.AgentClientDTO, error) {
	result, err := h.ActivateRelationship.Execute(ctx, commands.ActivateRelationshipCommand{
		AgentClientID:     agentClientID,
		ClientPrincipalID: clientPrincipalID,
	})
	if err != nil {
		return httptransport.AgentClientDTO{}, err
	}
	return agentClientDTO(result.Relationship), nil
}

// TerminateRelationshipHandler ends a contract for either party.
func (h Handler) TerminateRelationshipHandler(
	ctx context.Context,
	agentClientID string,
	actorID string,
	terminatedBy entities.Terminator,
	request httptransport.TerminateRelationshipRequest,
) (httptransport.AgentClientDTO, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("http terminate relationship received",
		"event", "delegation_http_terminate_received",
		"module", "identity-access/delegation-service",
		"layer", "transport",
		"agent_client_id", agentClientID,
		"actor_id", actorID,
	)

	result, err := h.TerminateRelationship.Execute(ctx, commands.TerminateRelationshipCommand{
		AgentClientID: agentClientID,
		ActorID:       actorID,
		TerminatedBy:  terminatedBy,
		Reason:        request.Reason,
	})
	if err != nil {
		logger.Error("http terminate relationship failed",
			"event", "delegation_http_terminate_failed",
			"module", "identity-access/delegation-service",
			"layer", "transport",
			"agent_client_id", agentClientID,
			"actor_id", actorID,
			"error", err.Error(),
		)
		return httptransport.AgentClientDTO{}, err
	}
	return agentClientDTO(result.Relationship), nil
}

// ListAuditHandler pages through the audit log.
func (h Handler) ListAuditHandler(ctx context.Context, query queries.ListAuditEntriesQuery) (httptransport.ListAuditResponse, error) {
	entries, err := h.ListAudit.Execute(ctx, query)
	if err != nil {
		return httptransport.ListAuditResponse{}, err
	}

	items := make([]httptransport.AuditEntryDTO, 0, len(entries))
	for _, entry := range entries {
		items = append(items, httptransport.AuditEntryDTO{
			EntryID:     entry.EntryID,
			ActorID:     entry.ActorID,
			Action:      entry.Action,
			TargetType:  entry.TargetType,
			TargetID:    entry.TargetID,
			Description: entry.Description,
			CreatedAt:   entry.CreatedAt,
		})
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}
	return httptransport.ListAuditResponse{
		Entries: items,
		Limit:   limit,
		Offset:  query.Offset,
	}, nil
}

func agentProfileDTO(profile entities.AgentProfile) httptransport.AgentProfileDTO {
	return httptransport.AgentProfileDTO{
		ProfileID:       profile.ProfileID,
		PrincipalID:     profile.PrincipalID,
		Status:          string(profile.Status),
		ApprovedAt:      profile.ApprovedAt,
		RejectionReason: profile.RejectionReason,
		CreatedAt:       profile.CreatedAt,
		UpdatedAt:       profile.UpdatedAt,
	}
}

func agentClientDTO(relationship entities.AgentClient) httptransport.AgentClientDTO {
	return httptransport.AgentClientDTO{
		AgentClientID:     relationship.AgentClientID,
		AgentProfileID:    relationship.AgentProfileID,
		ClientPrincipalID: relationship.ClientPrincipalID,
		Status:            string(relationship.Status),
		StartedAt:         relationship.StartedAt,
		EndedAt:           relationship.EndedAt,
		TerminatedBy:      string(relationship.TerminatedBy),
		TerminationReason: relationship.TerminationReason,
	}
}
