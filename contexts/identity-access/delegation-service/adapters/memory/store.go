package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"flowsmartly/contexts/identity-access/delegation-service/domain/entities"
	domainerrors "flowsmartly/contexts/identity-access/delegation-service/domain/errors"
	"flowsmartly/contexts/identity-access/delegation-service/ports"
	"flowsmartly/internal/shared/events"

	"github.com/google/uuid"
)

// Store is an in-memory adapter implementing the repository, audit, and
// outbox ports. It is intended for tests and local development wiring. All
// multi-record mutations run under one lock, giving the same atomicity the
// postgres adapter gets from transactions.
type Store struct {
	mu sync.RWMutex

	principals    map[string]entities.Principal
	profiles      map[string]entities.AgentProfile
	relationships map[string]entities.AgentClient
	sessions      map[string]entities.DelegationSession
	audit         []entities.AuditEntry
	outbox        map[string]outboxRow
}

type outboxRow struct {
	ports.OutboxMessage
	PublishedAt *time.Time
}

// NewStore builds an empty in-memory adapter.
func NewStore() *Store {
	return &Store{
		principals:    make(map[string]entities.Principal),
		profiles:      make(map[string]entities.AgentProfile),
		relationships: make(map[string]entities.AgentClient),
		sessions:      make(map[string]entities.DelegationSession),
		outbox:        make(map[string]outboxRow),
	}
}

// SeedPrincipal inserts a principal directly; registration lives outside this
// module.
func (s *Store) SeedPrincipal(principal entities.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if principal.CreatedAt.IsZero() {
		principal.CreatedAt = time.Now().UTC()
	}
	s.principals[principal.PrincipalID] = principal
}

func (s *Store) GetPrincipal(_ context.Context, principalID string) (entities.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	principal, ok := s.principals[principalID]
	if !ok {
		return entities.Principal{}, domainerrors.ErrPrincipalNotFound
	}
	return principal, nil
}

func (s *Store) CreatePrincipal(_ context.Context, principal entities.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if principal.CreatedAt.IsZero() {
		principal.CreatedAt = time.Now().UTC()
	}
	s.principals[principal.PrincipalID] = principal
	return nil
}

func (s *Store) GetAgentProfile(_ context.Context, profileID string) (entities.AgentProfile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[profileID]
	return profile, ok, nil
}

func (s *Store) GetAgentProfileByPrincipal(_ context.Context, principalID string) (entities.AgentProfile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, profile := range s.profiles {
		if profile.PrincipalID == principalID {
			return profile, true, nil
		}
	}
	return entities.AgentProfile{}, false, nil
}

func (s *Store) CreateAgentProfile(_ context.Context, input ports.CreateAgentProfileInput) (entities.AgentProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, profile := range s.profiles {
		if profile.PrincipalID == input.PrincipalID {
			return entities.AgentProfile{}, domainerrors.ErrAgentAlreadyApplied
		}
	}
	profile := entities.AgentProfile{
		ProfileID:   input.ProfileID,
		PrincipalID: input.PrincipalID,
		Status:      entities.AgentProfilePending,
		CreatedAt:   input.CreatedAt.UTC(),
		UpdatedAt:   input.CreatedAt.UTC(),
	}
	s.profiles[profile.ProfileID] = profile
	return profile, nil
}

func (s *Store) ReviewAgentProfile(_ context.Context, input ports.ReviewAgentInput) (entities.AgentProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[input.ProfileID]
	if !ok {
		return entities.AgentProfile{}, domainerrors.ErrProfileNotFound
	}
	if profile.Status != entities.AgentProfilePending {
		return entities.AgentProfile{}, domainerrors.ErrProfileNotPending
	}

	action := entities.AuditAgentRejected
	if input.Approve {
		approvedAt := input.ReviewedAt.UTC()
		profile.Status = entities.AgentProfileApproved
		profile.ApprovedAt = &approvedAt
		action = entities.AuditAgentApproved
	} else {
		profile.Status = entities.AgentProfileRejected
		profile.RejectionReason = input.Reason
	}
	profile.UpdatedAt = input.ReviewedAt.UTC()
	s.profiles[profile.ProfileID] = profile

	s.appendAuditLocked(entities.AuditEntry{
		EntryID:     input.AuditLogID,
		ActorID:     input.AdminID,
		Action:      action,
		TargetType:  "agent_profile",
		TargetID:    profile.ProfileID,
		Description: input.Reason,
		CreatedAt:   input.ReviewedAt.UTC(),
	})
	s.appendOutboxLocked(input.OutboxID, "agent.status_changed", profile.ProfileID, input.ReviewedAt.UTC(), map[string]any{
		"agent_profile_id": profile.ProfileID,
		"status":           string(profile.Status),
	})
	return profile, nil
}

func (s *Store) SuspendAgent(_ context.Context, input ports.SuspendAgentInput) (ports.SuspendAgentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[input.ProfileID]
	if !ok {
		return ports.SuspendAgentResult{}, domainerrors.ErrProfileNotFound
	}
	if profile.Status != entities.AgentProfileApproved {
		return ports.SuspendAgentResult{}, domainerrors.ErrAgentNotApproved
	}

	now := input.SuspendedAt.UTC()
	profile.Status = entities.AgentProfileSuspended
	profile.UpdatedAt = now
	s.profiles[profile.ProfileID] = profile

	result := ports.SuspendAgentResult{Profile: profile, AuditLogID: input.AuditLogID}

	if closed, ok := s.closeOpenSessionLocked(profile.ProfileID, now, entities.ClosedBySystem); ok {
		result.ClosedSession = &closed
		s.appendAuditLocked(entities.AuditEntry{
			EntryID:     input.SessionAuditLogID,
			ActorID:     "system",
			Action:      entities.AuditImpersonationEnded,
			TargetType:  "delegation_session",
			TargetID:    closed.SessionID,
			Description: "closed by system on agent suspension",
			CreatedAt:   now,
		})
	}

	for id, relationship := range s.relationships {
		if relationship.AgentProfileID != profile.ProfileID || relationship.Status == entities.AgentClientTerminated {
			continue
		}
		relationship.Status = entities.AgentClientTerminated
		relationship.TerminatedBy = entities.TerminatedBySystem
		relationship.TerminationReason = "agent suspended"
		relationship.EndedAt = &now
		relationship.UpdatedAt = now
		s.relationships[id] = relationship
		s.appendAuditLocked(entities.AuditEntry{
			EntryID:     uuid.NewString(),
			ActorID:     "system",
			Action:      entities.AuditRelationshipTerminated,
			TargetType:  "agent_client",
			TargetID:    relationship.AgentClientID,
			Description: "agent suspended",
			CreatedAt:   now,
		})
	}

	s.appendAuditLocked(entities.AuditEntry{
		EntryID:     input.AuditLogID,
		ActorID:     input.AdminID,
		Action:      entities.AuditAgentSuspended,
		TargetType:  "agent_profile",
		TargetID:    profile.ProfileID,
		Description: input.Reason,
		CreatedAt:   now,
	})
	s.appendOutboxLocked(input.OutboxID, "agent.status_changed", profile.ProfileID, now, map[string]any{
		"agent_profile_id": profile.ProfileID,
		"status":           string(profile.Status),
	})
	return result, nil
}

func (s *Store) GetAgentClient(_ context.Context, agentClientID string) (entities.AgentClient, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	relationship, ok := s.relationships[agentClientID]
	return relationship, ok, nil
}

func (s *Store) CreateAgentClient(_ context.Context, input ports.CreateAgentClientInput) (entities.AgentClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := entities.AgentClientPending
	if input.Active {
		status = entities.AgentClientActive
	}
	relationship := entities.AgentClient{
		AgentClientID:     input.AgentClientID,
		AgentProfileID:    input.AgentProfileID,
		ClientPrincipalID: input.ClientPrincipalID,
		Status:            status,
		StartedAt:         input.CreatedAt.UTC(),
		CreatedAt:         input.CreatedAt.UTC(),
		UpdatedAt:         input.CreatedAt.UTC(),
	}
	s.relationships[relationship.AgentClientID] = relationship
	return relationship, nil
}

func (s *Store) ActivateAgentClient(_ context.Context, agentClientID string, activatedAt time.Time) (entities.AgentClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	relationship, ok := s.relationships[agentClientID]
	if !ok {
		return entities.AgentClient{}, domainerrors.ErrRelationshipNotFound
	}
	if relationship.Status == entities.AgentClientTerminated {
		return entities.AgentClient{}, domainerrors.ErrRelationshipTerminated
	}
	relationship.Status = entities.AgentClientActive
	relationship.UpdatedAt = activatedAt.UTC()
	s.relationships[agentClientID] = relationship
	return relationship, nil
}

func (s *Store) TerminateAgentClient(_ context.Context, input ports.TerminateAgentClientInput) (entities.AgentClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	relationship, ok := s.relationships[input.AgentClientID]
	if !ok {
		return entities.AgentClient{}, domainerrors.ErrRelationshipNotFound
	}
	if relationship.Status == entities.AgentClientTerminated {
		return entities.AgentClient{}, domainerrors.ErrRelationshipTerminated
	}

	now := input.TerminatedAt.UTC()
	relationship.Status = entities.AgentClientTerminated
	relationship.TerminatedBy = input.TerminatedBy
	relationship.TerminationReason = input.Reason
	relationship.EndedAt = &now
	relationship.UpdatedAt = now
	s.relationships[relationship.AgentClientID] = relationship

	// Ending the contract also ends any overlay running on it.
	if closed, ok := s.closeOpenSessionLocked(relationship.AgentProfileID, now, entities.ClosedBySystem); ok {
		s.appendAuditLocked(entities.AuditEntry{
			EntryID:     uuid.NewString(),
			ActorID:     "system",
			Action:      entities.AuditImpersonationEnded,
			TargetType:  "delegation_session",
			TargetID:    closed.SessionID,
			Description: "closed by system on relationship termination",
			CreatedAt:   now,
		})
	}

	s.appendAuditLocked(entities.AuditEntry{
		EntryID:     input.AuditLogID,
		ActorID:     input.ActorID,
		Action:      entities.AuditRelationshipTerminated,
		TargetType:  "agent_client",
		TargetID:    relationship.AgentClientID,
		Description: input.Reason,
		CreatedAt:   now,
	})
	s.appendOutboxLocked(input.OutboxID, "relationship.terminated", relationship.AgentClientID, now, map[string]any{
		"agent_client_id": relationship.AgentClientID,
		"terminated_by":   string(input.TerminatedBy),
	})
	return relationship, nil
}

func (s *Store) StartDelegation(_ context.Context, input ports.StartDelegationInput) (ports.StartDelegationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check under the lock: state may have moved since the use case read it.
	profile, ok := s.profiles[input.AgentProfileID]
	if !ok {
		return ports.StartDelegationResult{}, domainerrors.ErrNotAnAgent
	}
	if !profile.CanDelegate() {
		return ports.StartDelegationResult{}, domainerrors.ErrAgentNotApproved
	}
	relationship, ok := s.relationships[input.AgentClientID]
	if !ok || relationship.AgentProfileID != input.AgentProfileID {
		return ports.StartDelegationResult{}, domainerrors.ErrRelationshipNotFound
	}
	if !relationship.IsDelegatable() {
		return ports.StartDelegationResult{}, domainerrors.ErrRelationshipNotActive
	}

	now := input.StartedAt.UTC()
	result := ports.StartDelegationResult{AuditLogID: input.AuditLogID}

	if closed, ok := s.closeOpenSessionLocked(input.AgentProfileID, now, entities.ClosedByAgent); ok {
		result.ClosedSession = &closed
		s.appendAuditLocked(entities.AuditEntry{
			EntryID:     uuid.NewString(),
			ActorID:     input.AgentPrincipalID,
			Action:      entities.AuditImpersonationEnded,
			TargetType:  "delegation_session",
			TargetID:    closed.SessionID,
			Description: "replaced by new delegation session",
			CreatedAt:   now,
		})
	}

	session := entities.DelegationSession{
		SessionID:         input.SessionID,
		AgentProfileID:    input.AgentProfileID,
		AgentPrincipalID:  input.AgentPrincipalID,
		ClientPrincipalID: input.ClientPrincipalID,
		AgentClientID:     input.AgentClientID,
		Reason:            input.Reason,
		StartedAt:         now,
	}
	s.sessions[session.SessionID] = session
	result.Session = session

	s.appendAuditLocked(entities.AuditEntry{
		EntryID:     input.AuditLogID,
		ActorID:     input.AgentPrincipalID,
		Action:      entities.AuditImpersonationStarted,
		TargetType:  "agent_client",
		TargetID:    input.AgentClientID,
		Description: input.Reason,
		CreatedAt:   now,
	})
	s.appendOutboxLocked(input.OutboxID, "delegation.started", session.SessionID, now, map[string]any{
		"session_id":          session.SessionID,
		"agent_profile_id":    session.AgentProfileID,
		"client_principal_id": session.ClientPrincipalID,
	})
	return result, nil
}

func (s *Store) EndDelegation(_ context.Context, input ports.EndDelegationInput) (ports.EndDelegationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := input.EndedAt.UTC()
	closed, ok := s.closeOpenSessionLocked(input.AgentProfileID, now, input.ClosedBy)
	if !ok {
		return ports.EndDelegationResult{Ended: false}, nil
	}

	actorID := closed.AgentPrincipalID
	if input.ClosedBy == entities.ClosedBySystem {
		actorID = "system"
	}
	s.appendAuditLocked(entities.AuditEntry{
		EntryID:     input.AuditLogID,
		ActorID:     actorID,
		Action:      entities.AuditImpersonationEnded,
		TargetType:  "delegation_session",
		TargetID:    closed.SessionID,
		Description: input.Reason,
		CreatedAt:   now,
	})
	s.appendOutboxLocked(input.OutboxID, "delegation.ended", closed.SessionID, now, map[string]any{
		"session_id":       closed.SessionID,
		"agent_profile_id": closed.AgentProfileID,
		"closed_by":        string(input.ClosedBy),
	})
	return ports.EndDelegationResult{Session: closed, Ended: true, AuditLogID: input.AuditLogID}, nil
}

func (s *Store) GetOpenSession(_ context.Context, agentProfileID string) (entities.DelegationSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if session.AgentProfileID == agentProfileID && session.IsOpen() {
			return session, true, nil
		}
	}
	return entities.DelegationSession{}, false, nil
}

func (s *Store) AppendAudit(_ context.Context, entry entities.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendAuditLocked(entry)
	return nil
}

func (s *Store) QueryAudit(_ context.Context, filter ports.AuditFilter) ([]entities.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]entities.AuditEntry, 0)
	for _, entry := range s.audit {
		if filter.ActorID != "" && entry.ActorID != filter.ActorID {
			continue
		}
		if filter.TargetID != "" && entry.TargetID != filter.TargetID {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.From != nil && entry.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && entry.CreatedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, entry)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	offset := filter.Offset
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.PublishedAt == nil {
			items = append(items, row.OutboxMessage)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.outbox[outboxID]
	if !ok {
		return domainerrors.ErrAuthorizationUnavailable
	}
	published := publishedAt.UTC()
	row.PublishedAt = &published
	s.outbox[outboxID] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) closeOpenSessionLocked(agentProfileID string, endedAt time.Time, closedBy entities.SessionCloser) (entities.DelegationSession, bool) {
	for id, session := range s.sessions {
		if session.AgentProfileID != agentProfileID || !session.IsOpen() {
			continue
		}
		ended := endedAt.UTC()
		session.EndedAt = &ended
		session.ClosedBy = closedBy
		s.sessions[id] = session
		return session, true
	}
	return entities.DelegationSession{}, false
}

func (s *Store) appendAuditLocked(entry entities.AuditEntry) {
	if strings.TrimSpace(entry.EntryID) == "" {
		entry.EntryID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.audit = append(s.audit, entry)
}

func (s *Store) appendOutboxLocked(outboxID string, eventType string, entityID string, occurredAt time.Time, payload map[string]any) {
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
		return
	}
	s.outbox[outboxID] = outboxRow{
		OutboxMessage: ports.OutboxMessage{
			OutboxID:  outboxID,
			EventType: eventType,
			Payload:   body,
			CreatedAt: occurredAt,
		},
	}
}

var _ ports.Repository = (*Store)(nil)
var _ ports.AuditLog = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
