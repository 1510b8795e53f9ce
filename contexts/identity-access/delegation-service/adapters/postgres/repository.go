package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"flowsmartly/contexts/identity-access/delegation-service/domain/entities"
	domainerrors "flowsmartly/contexts/identity-access/delegation-service/domain/errors"
	"flowsmartly/contexts/identity-access/delegation-service/ports"
	"flowsmartly/internal/shared/events"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) GetPrincipal(ctx context.Context, principalID string) (entities.Principal, error) {
	var row principalModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(principalID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Principal{}, domainerrors.ErrPrincipalNotFound
		}
		return entities.Principal{}, r.logError("delegation_repo_get_principal_failed", err,
			"principal_id", strings.TrimSpace(principalID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) CreatePrincipal(ctx context.Context, principal entities.Principal) error {
	row := principalModelFromEntity(principal)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("delegation_repo_create_principal_failed", create.Error,
			"principal_id", row.ID,
		)
	}
	return nil
}

func (r *Repository) GetAgentProfile(ctx context.Context, profileID string) (entities.AgentProfile, bool, error) {
	var row agentProfileModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(profileID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.AgentProfile{}, false, nil
		}
		return entities.AgentProfile{}, false, r.logError("delegation_repo_get_profile_failed", err,
			"agent_profile_id", strings.TrimSpace(profileID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) GetAgentProfileByPrincipal(ctx context.Context, principalID string) (entities.AgentProfile, bool, error) {
	var row agentProfileModel
	err := r.db.WithContext(ctx).
		Where("principal_id = ?", strings.TrimSpace(principalID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.AgentProfile{}, false, nil
		}
		return entities.AgentProfile{}, false, r.logError("delegation_repo_get_profile_by_principal_failed", err,
			"principal_id", strings.TrimSpace(principalID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) CreateAgentProfile(ctx context.Context, input ports.CreateAgentProfileInput) (entities.AgentProfile, error) {
	row := agentProfileModel{
		ID:          strings.TrimSpace(input.ProfileID),
		PrincipalID: strings.TrimSpace(input.PrincipalID),
		Status:      string(entities.AgentProfilePending),
		CreatedAt:   input.CreatedAt.UTC(),
		UpdatedAt:   input.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return entities.AgentProfile{}, domainerrors.ErrAgentAlreadyApplied
		}
		return entities.AgentProfile{}, r.logError("delegation_repo_create_profile_failed", err,
			"principal_id", row.PrincipalID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ReviewAgentProfile(ctx context.Context, input ports.ReviewAgentInput) (entities.AgentProfile, error) {
	var updated agentProfileModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row agentProfileModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", strings.TrimSpace(input.ProfileID)).
			First(&row).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrProfileNotFound
			}
			return err
		}
		if row.Status != string(entities.AgentProfilePending) {
			return domainerrors.ErrProfileNotPending
		}

		now := input.ReviewedAt.UTC()
		action := entities.AuditAgentRejected
		updates := map[string]any{
			"status":     string(entities.AgentProfileRejected),
			"updated_at": now,
		}
		if input.Approve {
			action = entities.AuditAgentApproved
			updates["status"] = string(entities.AgentProfileApproved)
			updates["approved_at"] = now
		} else {
			updates["rejection_reason"] = input.Reason
		}
		if err := tx.Model(&agentProfileModel{}).
			Where("id = ?", row.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		if err := appendAuditTx(tx, entities.AuditEntry{
			EntryID:     input.AuditLogID,
			ActorID:     input.AdminID,
			Action:      action,
			TargetType:  "agent_profile",
			TargetID:    row.ID,
			Description: input.Reason,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		if err := appendOutboxTx(tx, input.OutboxID, "agent.status_changed", row.ID, now, map[string]any{
			"agent_profile_id": row.ID,
			"status":           updates["status"],
		}); err != nil {
			return err
		}

		return tx.Where("id = ?", row.ID).First(&updated).Error
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrProfileNotFound) || errors.Is(err, domainerrors.ErrProfileNotPending) {
			return entities.AgentProfile{}, err
		}
		return entities.AgentProfile{}, r.logError("delegation_repo_review_profile_failed", err,
			"agent_profile_id", strings.TrimSpace(input.ProfileID),
		)
	}
	return updated.toEntity(), nil
}

func (r *Repository) SuspendAgent(ctx context.Context, input ports.SuspendAgentInput) (ports.SuspendAgentResult, error) {
	result := ports.SuspendAgentResult{AuditLogID: input.AuditLogID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The profile row lock serializes suspension against concurrent
		// delegation starts for the same agent.
		var row agentProfileModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", strings.TrimSpace(input.ProfileID)).
			First(&row).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrProfileNotFound
			}
			return err
		}
		if row.Status != string(entities.AgentProfileApproved) {
			return domainerrors.ErrAgentNotApproved
		}

		now := input.SuspendedAt.UTC()
		if err := tx.Model(&agentProfileModel{}).
			Where("id = ?", row.ID).
			Updates(map[string]any{
				"status":     string(entities.AgentProfileSuspended),
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		closed, ok, err := closeOpenSessionTx(tx, row.ID, now, entities.ClosedBySystem)
		if err != nil {
			return err
		}
		if ok {
			result.ClosedSession = &closed
			if err := appendAuditTx(tx, entities.AuditEntry{
				EntryID:     input.SessionAuditLogID,
				ActorID:     "system",
				Action:      entities.AuditImpersonationEnded,
				TargetType:  "delegation_session",
				TargetID:    closed.SessionID,
				Description: "closed by system on agent suspension",
				CreatedAt:   now,
			}); err != nil {
				return err
			}
		}

		var contracts []agentClientModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("agent_profile_id = ?", row.ID).
			Where("status <> ?", string(entities.AgentClientTerminated)).
			Find(&contracts).Error; err != nil {
			return err
		}
		for _, contract := range contracts {
			if err := tx.Model(&agentClientModel{}).
				Where("id = ?", contract.ID).
				Updates(map[string]any{
					"status":             string(entities.AgentClientTerminated),
					"terminated_by":      string(entities.TerminatedBySystem),
					"termination_reason": "agent suspended",
					"ended_at":           now,
					"updated_at":         now,
				}).Error; err != nil {
				return err
			}
			if err := appendAuditTx(tx, entities.AuditEntry{
				EntryID:     uuid.NewString(),
				ActorID:     "system",
				Action:      entities.AuditRelationshipTerminated,
				TargetType:  "agent_client",
				TargetID:    contract.ID,
				Description: "agent suspended",
				CreatedAt:   now,
			}); err != nil {
				return err
			}
		}

		if err := appendAuditTx(tx, entities.AuditEntry{
			EntryID:     input.AuditLogID,
			ActorID:     input.AdminID,
			Action:      entities.AuditAgentSuspended,
			TargetType:  "agent_profile",
			TargetID:    row.ID,
			Description: input.Reason,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		if err := appendOutboxTx(tx, input.OutboxID, "agent.status_changed", row.ID, now, map[string]any{
			"agent_profile_id": row.ID,
			"status":           string(entities.AgentProfileSuspended),
		}); err != nil {
			return err
		}

		var updated agentProfileModel
		if err := tx.Where("id = ?", row.ID).First(&updated).Error; err != nil {
			return err
		}
		result.Profile = updated.toEntity()
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrProfileNotFound) || errors.Is(err, domainerrors.ErrAgentNotApproved) {
			return ports.SuspendAgentResult{}, err
		}
		return ports.SuspendAgentResult{}, r.logError("delegation_repo_suspend_agent_failed", err,
			"agent_profile_id", strings.TrimSpace(input.ProfileID),
		)
	}
	return result, nil
}

func (r *Repository) GetAgentClient(ctx context.Context, agentClientID string) (entities.AgentClient, bool, error) {
	var row agentClientModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(agentClientID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.AgentClient{}, false, nil
		}
		return entities.AgentClient{}, false, r.logError("delegation_repo_get_agent_client_failed", err,
			"agent_client_id", strings.TrimSpace(agentClientID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) CreateAgentClient(ctx context.Context, input ports.CreateAgentClientInput) (entities.AgentClient, error) {
	status := entities.AgentClientPending
	if input.Active {
		status = entities.AgentClientActive
	}
	row := agentClientModel{
		ID:                strings.TrimSpace(input.AgentClientID),
		AgentProfileID:    strings.TrimSpace(input.AgentProfileID),
		ClientPrincipalID: strings.TrimSpace(input.ClientPrincipalID),
		Status:            string(status),
		StartedAt:         input.CreatedAt.UTC(),
		CreatedAt:         input.CreatedAt.UTC(),
		UpdatedAt:         input.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return entities.AgentClient{}, r.logError("delegation_repo_create_agent_client_failed", err,
			"agent_client_id", row.ID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ActivateAgentClient(ctx context.Context, agentClientID string, activatedAt time.Time) (entities.AgentClient, error) {
	update := r.db.WithContext(ctx).Model(&agentClientModel{}).
		Where("id = ?", strings.TrimSpace(agentClientID)).
		Where("status <> ?", string(entities.AgentClientTerminated)).
		Updates(map[string]any{
			"status":     string(entities.AgentClientActive),
			"updated_at": activatedAt.UTC(),
		})
	if update.Error != nil {
		return entities.AgentClient{}, r.logError("delegation_repo_activate_agent_client_failed", update.Error,
			"agent_client_id", strings.TrimSpace(agentClientID),
		)
	}
	if update.RowsAffected == 0 {
		return entities.AgentClient{}, domainerrors.ErrRelationshipNotFound
	}

	var row agentClientModel
	if err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(agentClientID)).
		First(&row).Error; err != nil {
		return entities.AgentClient{}, r.logError("delegation_repo_activate_reload_failed", err,
			"agent_client_id", strings.TrimSpace(agentClientID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) TerminateAgentClient(ctx context.Context, input ports.TerminateAgentClientInput) (entities.AgentClient, error) {
	var terminated agentClientModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row agentClientModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", strings.TrimSpace(input.AgentClientID)).
			First(&row).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrRelationshipNotFound
			}
			return err
		}
		if row.Status == string(entities.AgentClientTerminated) {
			return domainerrors.ErrRelationshipTerminated
		}

		now := input.TerminatedAt.UTC()
		if err := tx.Model(&agentClientModel{}).
			Where("id = ?", row.ID).
			Updates(map[string]any{
				"status":             string(entities.AgentClientTerminated),
				"terminated_by":      string(input.TerminatedBy),
				"termination_reason": input.Reason,
				"ended_at":           now,
				"updated_at":         now,
			}).Error; err != nil {
			return err
		}

		closed, ok, err := closeOpenSessionTx(tx, row.AgentProfileID, now, entities.ClosedBySystem)
		if err != nil {
			return err
		}
		if ok {
			if err := appendAuditTx(tx, entities.AuditEntry{
				EntryID:     uuid.NewString(),
				ActorID:     "system",
				Action:      entities.AuditImpersonationEnded,
				TargetType:  "delegation_session",
				TargetID:    closed.SessionID,
				Description: "closed by system on relationship termination",
				CreatedAt:   now,
			}); err != nil {
				return err
			}
		}

		if err := appendAuditTx(tx, entities.AuditEntry{
			EntryID:     input.AuditLogID,
			ActorID:     input.ActorID,
			Action:      entities.AuditRelationshipTerminated,
			TargetType:  "agent_client",
			TargetID:    row.ID,
			Description: input.Reason,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		if err := appendOutboxTx(tx, input.OutboxID, "relationship.terminated", row.ID, now, map[string]any{
			"agent_client_id": row.ID,
			"terminated_by":   string(input.TerminatedBy),
		}); err != nil {
			return err
		}

		return tx.Where("id = ?", row.ID).First(&terminated).Error
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrRelationshipNotFound) || errors.Is(err, domainerrors.ErrRelationshipTerminated) {
			return entities.AgentClient{}, err
		}
		return entities.AgentClient{}, r.logError("delegation_repo_terminate_agent_client_failed", err,
			"agent_client_id", strings.TrimSpace(input.AgentClientID),
		)
	}
	return terminated.toEntity(), nil
}

func (r *Repository) StartDelegation(ctx context.Context, input ports.StartDelegationInput) (ports.StartDelegationResult, error) {
	result := ports.StartDelegationResult{AuditLogID: input.AuditLogID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the profile row first: two near-simultaneous starts for the
		// same agent serialize here, so close-then-open can never interleave
		// and leave two open sessions.
		var profile agentProfileModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", strings.TrimSpace(input.AgentProfileID)).
			First(&profile).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrNotAnAgent
			}
			return err
		}
		if profile.Status != string(entities.AgentProfileApproved) {
			return domainerrors.ErrAgentNotApproved
		}

		var relationship agentClientModel
		if err := tx.Where("id = ?", strings.TrimSpace(input.AgentClientID)).
			First(&relationship).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrRelationshipNotFound
			}
			return err
		}
		if relationship.AgentProfileID != profile.ID {
			return domainerrors.ErrRelationshipNotFound
		}
		if relationship.Status != string(entities.AgentClientActive) {
			return domainerrors.ErrRelationshipNotActive
		}

		now := input.StartedAt.UTC()
		closed, ok, err := closeOpenSessionTx(tx, profile.ID, now, entities.ClosedByAgent)
		if err != nil {
			return err
		}
		if ok {
			result.ClosedSession = &closed
			if err := appendAuditTx(tx, entities.AuditEntry{
				EntryID:     uuid.NewString(),
				ActorID:     input.AgentPrincipalID,
				Action:      entities.AuditImpersonationEnded,
				TargetType:  "delegation_session",
				TargetID:    closed.SessionID,
				Description: "replaced by new delegation session",
				CreatedAt:   now,
			}); err != nil {
				return err
			}
		}

		row := delegationSessionModel{
			ID:                strings.TrimSpace(input.SessionID),
			AgentProfileID:    profile.ID,
			AgentPrincipalID:  strings.TrimSpace(input.AgentPrincipalID),
			ClientPrincipalID: strings.TrimSpace(input.ClientPrincipalID),
			AgentClientID:     relationship.ID,
			Reason:            input.Reason,
			StartedAt:         now,
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrRelationshipNotActive
			}
			return err
		}
		result.Session = row.toEntity()

		if err := appendAuditTx(tx, entities.AuditEntry{
			EntryID:     input.AuditLogID,
			ActorID:     input.AgentPrincipalID,
			Action:      entities.AuditImpersonationStarted,
			TargetType:  "agent_client",
			TargetID:    relationship.ID,
			Description: input.Reason,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		return appendOutboxTx(tx, input.OutboxID, "delegation.started", row.ID, now, map[string]any{
			"session_id":          row.ID,
			"agent_profile_id":    row.AgentProfileID,
			"client_principal_id": row.ClientPrincipalID,
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, domainerrors.ErrNotAnAgent),
			errors.Is(err, domainerrors.ErrAgentNotApproved),
			errors.Is(err, domainerrors.ErrRelationshipNotFound),
			errors.Is(err, domainerrors.ErrRelationshipNotActive):
			return ports.StartDelegationResult{}, err
		}
		return ports.StartDelegationResult{}, r.logError("delegation_repo_start_failed", err,
			"agent_profile_id", strings.TrimSpace(input.AgentProfileID),
			"agent_client_id", strings.TrimSpace(input.AgentClientID),
		)
	}
	return result, nil
}

func (r *Repository) EndDelegation(ctx context.Context, input ports.EndDelegationInput) (ports.EndDelegationResult, error) {
	result := ports.EndDelegationResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := input.EndedAt.UTC()
		closed, ok, err := closeOpenSessionTx(tx, strings.TrimSpace(input.AgentProfileID), now, input.ClosedBy)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		actorID := closed.AgentPrincipalID
		if input.ClosedBy == entities.ClosedBySystem {
			actorID = "system"
		}
		if err := appendAuditTx(tx, entities.AuditEntry{
			EntryID:     input.AuditLogID,
			ActorID:     actorID,
			Action:      entities.AuditImpersonationEnded,
			TargetType:  "delegation_session",
			TargetID:    closed.SessionID,
			Description: input.Reason,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		if err := appendOutboxTx(tx, input.OutboxID, "delegation.ended", closed.SessionID, now, map[string]any{
			"session_id":       closed.SessionID,
			"agent_profile_id": closed.AgentProfileID,
			"closed_by":        string(input.ClosedBy),
		}); err != nil {
			return err
		}
		result.Session = closed
		result.Ended = true
		result.AuditLogID = input.AuditLogID
		return nil
	})
	if err != nil {
		return ports.EndDelegationResult{}, r.logError("delegation_repo_end_failed", err,
			"agent_profile_id", strings.TrimSpace(input.AgentProfileID),
		)
	}
	return result, nil
}

func (r *Repository) GetOpenSession(ctx context.Context, agentProfileID string) (entities.DelegationSession, bool, error) {
	var row delegationSessionModel
	err := r.db.WithContext(ctx).
		Where("agent_profile_id = ?", strings.TrimSpace(agentProfileID)).
		Where("ended_at IS NULL").
		Order("started_at DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.DelegationSession{}, false, nil
		}
		return entities.DelegationSession{}, false, r.logError("delegation_repo_get_open_session_failed", err,
			"agent_profile_id", strings.TrimSpace(agentProfileID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) AppendAudit(ctx context.Context, entry entities.AuditEntry) error {
	if err := appendAuditTx(r.db.WithContext(ctx), entry); err != nil {
		return r.logError("delegation_repo_append_audit_failed", err,
			"action", entry.Action,
			"target_id", entry.TargetID,
		)
	}
	return nil
}

func (r *Repository) QueryAudit(ctx context.Context, filter ports.AuditFilter) ([]entities.AuditEntry, error) {
	tx := r.db.WithContext(ctx).Model(&auditEntryModel{})
	if filter.ActorID != "" {
		tx = tx.Where("actor_id = ?", filter.ActorID)
	}
	if filter.TargetID != "" {
		tx = tx.Where("target_id = ?", filter.TargetID)
	}
	if filter.Action != "" {
		tx = tx.Where("action = ?", filter.Action)
	}
	if filter.From != nil {
		tx = tx.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		tx = tx.Where("created_at <= ?", filter.To.UTC())
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var rows []auditEntryModel
	if err := tx.Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&rows).Error; err != nil {
		return nil, r.logError("delegation_repo_query_audit_failed", err)
	}
	items := make([]entities.AuditEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("delegation_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:  row.OutboxID,
			EventType: row.EventType,
			Payload:   append([]byte(nil), row.Payload...),
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("delegation_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	return nil
}

func closeOpenSessionTx(tx *gorm.DB, agentProfileID string, endedAt time.Time, closedBy entities.SessionCloser) (entities.DelegationSession, bool, error) {
	var row delegationSessionModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("agent_profile_id = ?", agentProfileID).
		Where("ended_at IS NULL").
		Order("started_at DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.DelegationSession{}, false, nil
		}
		return entities.DelegationSession{}, false, err
	}

	ended := endedAt.UTC()
	if err := tx.Model(&delegationSessionModel{}).
		Where("id = ?", row.ID).
		Where("ended_at IS NULL").
		Updates(map[string]any{
			"ended_at":  ended,
			"closed_by": string(closedBy),
		}).Error; err != nil {
		return entities.DelegationSession{}, false, err
	}
	row.EndedAt = &ended
	row.ClosedBy = string(closedBy)
	return row.toEntity(), true, nil
}

func appendAuditTx(tx *gorm.DB, entry entities.AuditEntry) error {
	row := auditEntryModel{
		ID:          strings.TrimSpace(entry.EntryID),
		ActorID:     strings.TrimSpace(entry.ActorID),
		Action:      entry.Action,
		TargetType:  entry.TargetType,
		TargetID:    strings.TrimSpace(entry.TargetID),
		Description: entry.Description,
		CreatedAt:   entry.CreatedAt.UTC(),
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return tx.Create(&row).Error
}

func appendOutboxTx(tx *gorm.DB, outboxID string, eventType string, entityID string, occurredAt time.Time, payload map[string]any) error {
	envelope := events.Envelope{
		EventID:        outboxID,
		EventType:      eventType,
		SourceService:  "identity-access/delegation-service",
		OccurredAtUTC:  occurredAt,
		EntityType:     "delegation",
		EntityID:       entityID,
		PayloadVersion: 1,
		Payload:        payload,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:  strings.TrimSpace(outboxID),
		EventType: eventType,
		Payload:   body,
		Status:    outboxStatusPending,
		CreatedAt: occurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row).Error
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "identity-access/delegation-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("delegation repository operation failed", fields...)
	return err
}

type principalModel struct {
	ID           string     `gorm:"column:id;primaryKey"`
	Email        string     `gorm:"column:email"`
	PasswordHash string     `gorm:"column:password_hash"`
	PlanTier     string     `gorm:"column:plan_tier"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	DeletedAt    *time.Time `gorm:"column:deleted_at"`
}

func (principalModel) TableName() string {
	return "users"
}

func principalModelFromEntity(principal entities.Principal) principalModel {
	row := principalModel{
		ID:           strings.TrimSpace(principal.PrincipalID),
		Email:        strings.TrimSpace(principal.Email),
		PasswordHash: principal.PasswordHash,
		PlanTier:     principal.PlanTier,
		CreatedAt:    principal.CreatedAt.UTC(),
		DeletedAt:    normalizeOptionalTime(principal.DeletedAt),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

func (m principalModel) toEntity() entities.Principal {
	return entities.Principal{
		PrincipalID:  m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		PlanTier:     m.PlanTier,
		CreatedAt:    m.CreatedAt.UTC(),
		DeletedAt:    normalizeOptionalTime(m.DeletedAt),
	}
}

type agentProfileModel struct {
	ID              string     `gorm:"column:id;primaryKey"`
	PrincipalID     string     `gorm:"column:principal_id"`
	Status          string     `gorm:"column:status"`
	ApprovedAt      *time.Time `gorm:"column:approved_at"`
	RejectionReason string     `gorm:"column:rejection_reason"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (agentProfileModel) TableName() string {
	return "agent_profiles"
}

func (m agentProfileModel) toEntity() entities.AgentProfile {
	return entities.AgentProfile{
		ProfileID:       m.ID,
		PrincipalID:     m.PrincipalID,
		Status:          entities.AgentProfileStatus(m.Status),
		ApprovedAt:      normalizeOptionalTime(m.ApprovedAt),
		RejectionReason: m.RejectionReason,
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

type agentClientModel struct {
	ID                string     `gorm:"column:id;primaryKey"`
	AgentProfileID    string     `gorm:"column:agent_profile_id"`
	ClientPrincipalID string     `gorm:"column:client_principal_id"`
	Status            string     `gorm:"column:status"`
	StartedAt         time.Time  `gorm:"column:started_at"`
	EndedAt           *time.Time `gorm:"column:ended_at"`
	TerminatedBy      string     `gorm:"column:terminated_by"`
	TerminationReason string     `gorm:"column:termination_reason"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (agentClientModel) TableName() string {
	return "agent_clients"
}

func (m agentClientModel) toEntity() entities.AgentClient {
	return entities.AgentClient{
		AgentClientID:     m.ID,
		AgentProfileID:    m.AgentProfileID,
		ClientPrincipalID: m.ClientPrincipalID,
		Status:            entities.AgentClientStatus(m.Status),
		StartedAt:         m.StartedAt.UTC(),
		EndedAt:           normalizeOptionalTime(m.EndedAt),
		TerminatedBy:      entities.Terminator(m.TerminatedBy),
		TerminationReason: m.TerminationReason,
		CreatedAt:         m.CreatedAt.UTC(),
		UpdatedAt:         m.UpdatedAt.UTC(),
	}
}

type delegationSessionModel struct {
	ID                string     `gorm:"column:id;primaryKey"`
	AgentProfileID    string     `gorm:"column:agent_profile_id"`
	AgentPrincipalID  string     `gorm:"column:agent_principal_id"`
	ClientPrincipalID string     `gorm:"column:client_principal_id"`
	AgentClientID     string     `gorm:"column:agent_client_id"`
	Reason            string     `gorm:"column:reason"`
	StartedAt         time.Time  `gorm:"column:started_at"`
	EndedAt           *time.Time `gorm:"column:ended_at"`
	ClosedBy          string     `gorm:"column:closed_by"`
}

func (delegationSessionModel) TableName() string {
	return "delegation_sessions"
}

func (m delegationSessionModel) toEntity() entities.DelegationSession {
	return entities.DelegationSession{
		SessionID:         m.ID,
		AgentProfileID:    m.AgentProfileID,
		AgentPrincipalID:  m.AgentPrincipalID,
		ClientPrincipalID: m.ClientPrincipalID,
		AgentClientID:     m.AgentClientID,
		Reason:            m.Reason,
		StartedAt:         m.StartedAt.UTC(),
		EndedAt:           normalizeOptionalTime(m.EndedAt),
		ClosedBy:          entities.SessionCloser(m.ClosedBy),
	}
}

type auditEntryModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	ActorID     string    `gorm:"column:actor_id"`
	Action      string    `gorm:"column:action"`
	TargetType  string    `gorm:"column:target_type"`
	TargetID    string    `gorm:"column:target_id"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (auditEntryModel) TableName() string {
	return "delegation_audit_log"
}

func (m auditEntryModel) toEntity() entities.AuditEntry {
	return entities.AuditEntry{
		EntryID:     m.ID,
		ActorID:     m.ActorID,
		Action:      m.Action,
		TargetType:  m.TargetType,
		TargetID:    m.TargetID,
		Description: m.Description,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID    string     `gorm:"column:outbox_id;primaryKey"`
	EventType   string     `gorm:"column:event_type"`
	Payload     []byte     `gorm:"column:payload"`
	Status      string     `gorm:"column:status"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "delegation_outbox"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Repository = (*Repository)(nil)
var _ ports.AuditLog = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
