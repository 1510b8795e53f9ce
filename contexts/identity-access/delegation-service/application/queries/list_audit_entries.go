package queries

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"flowsmartly/contexts/identity-access/delegation-service/domain/entities"
	domainerrors "flowsmartly/contexts/identity-access/delegation-service/domain/errors"
	"flowsmartly/contexts/identity-access/delegation-service/ports"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// ListAuditEntriesQuery filters the append-only log by actor, target, action
// tag, or time range. RequesterID is the authenticated caller; transport
// always sets it, internal callers may leave it empty.
type ListAuditEntriesQuery struct {
	RequesterID string
	ActorID     string
	TargetID    string
	Action      string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// ListAuditEntriesUseCase is a read-only pass over the audit store.
// Non-administrative requesters only see entries they appear in, as actor or
// as target.
type ListAuditEntriesUseCase struct {
	Audit      ports.AuditLog
	Repository ports.Repository
	Logger     *slog.Logger
}

func (u ListAuditEntriesUseCase) Execute(ctx context.Context, query ListAuditEntriesQuery) ([]entities.AuditEntry, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	requester := strings.TrimSpace(query.RequesterID)
	restricted := false
	if requester != "" {
		principal, err := u.Repository.GetPrincipal(ctx, requester)
		if err != nil {
			if errors.Is(err, domainerrors.ErrPrincipalNotFound) {
				return nil, domainerrors.ErrForbidden
			}
			return nil, unavailable(err)
		}
		restricted = !principal.IsAdmin()
	}

	entries, err := u.Audit.QueryAudit(ctx, ports.AuditFilter{
		ActorID:  query.ActorID,
		TargetID: query.TargetID,
		Action:   query.Action,
		From:     query.From,
		To:       query.To,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, unavailable(err)
	}
	if !restricted {
		return entries, nil
	}

	scoped := make([]entities.AuditEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.ActorID == requester || entry.TargetID == requester {
			scoped = append(scoped, entry)
		}
	}
	return scoped, nil
}
