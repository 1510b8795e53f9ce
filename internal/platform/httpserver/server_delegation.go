package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"flowsmartly/contexts/identity-access/delegation-service/application/queries"
	delegationerrors "flowsmartly/contexts/identity-access/delegation-service/domain/errors"
	delegationhttp "flowsmartly/contexts/identity-access/delegation-service/transport/http"
)

func writeDelegationDomainError(w http.ResponseWriter, err error) {
	if isSessionError(err) {
		writeSessionDomainError(w, err)
		return
	}
	switch {
	case errors.Is(err, delegationerrors.ErrInvalidPrincipalID),
		errors.Is(err, delegationerrors.ErrInvalidAgentClientID),
		errors.Is(err, delegationerrors.ErrInvalidProfileID),
		errors.Is(err, delegationerrors.ErrInvalidReviewDecision):
		writeFailure(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, delegationerrors.ErrNotAnAgent),
		errors.Is(err, delegationerrors.ErrAgentNotApproved),
		errors.Is(err, delegationerrors.ErrForbidden),
		errors.Is(err, delegationerrors.ErrRestrictedWhileDelegated):
		writeFailure(w, http.StatusForbidden, err.Error())
	case errors.Is(err, delegationerrors.ErrRelationshipNotFound),
		errors.Is(err, delegationerrors.ErrProfileNotFound),
		errors.Is(err, delegationerrors.ErrPrincipalNotFound):
		writeFailure(w, http.StatusNotFound, err.Error())
	case errors.Is(err, delegationerrors.ErrRelationshipNotActive),
		errors.Is(err, delegationerrors.ErrRelationshipTerminated),
		errors.Is(err, delegationerrors.ErrProfileNotPending),
		errors.Is(err, delegationerrors.ErrAgentAlreadyApplied):
		writeFailure(w, http.StatusConflict, err.Error())
	case errors.Is(err, delegationerrors.ErrAuthorizationUnavailable):
		writeFailure(w, http.StatusServiceUnavailable, "authorization state unavailable")
	default:
		writeFailure(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) handleDelegationStart(w http.ResponseWriter, r *http.Request) {
	principalID, ok := s.requireSessionPrincipal(w, r)
	if !ok {
		return
	}

	var req delegationhttp.StartDelegationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.delegation.Handler.StartDelegationHandler(r.Context(), principalID, req)
	if err != nil {
		writeDelegationDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (s *Server) handleDelegationEnd(w http.ResponseWriter, r *http.Request) {
	principalID, ok := s.requireSessionPrincipal(w, r)
	if !ok {
		return
	}

	// Body is optional on DELETE; a missing reason is fine.
	var req delegationhttp.EndDelegationRequest
	if r.Body != nil && r.ContentLength > 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	resp, err := s.delegation.Handler.EndDelegationHandler(r.Context(), principalID, req)
	if err != nil {
		writeDelegationDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (s *Server) handleDelegationStatus(w http.ResponseWriter, r *http.Request) {
	principalID, ok := s.requireSessionPrincipal(w, r)
	if !ok {
		return
	}

	resp, err := s.delegation.Handler.DelegationStatusHandler(r.Context(), principalID)
	if err != nil {
		writeDelegationDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (s *Server) handleAuditList(w http.ResponseWriter, r *http.Request) {
	principalID, ok := s.requireSessionPrincipal(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	listQuery := queries.ListAuditEntriesQuery{
		RequesterID: principalID,
		ActorID:     strings.TrimSpace(query.Get("actor_id")),
		TargetID:    strings.TrimSpace(query.Get("target_id")),
		Action:      strings.TrimSpace(query.Get("action")),
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		listQuery.Limit = limit
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "offset must be an integer")
			return
		}
		listQuery.Offset = offset
	}
	if raw := query.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "from must be an RFC3339 timestamp")
			return
		}
		listQuery.From = &from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "to must be an RFC3339 timestamp")
			return
		}
		listQuery.To = &to
	}

	resp, err := s.delegation.Handler.ListAuditHandler(r.Context(), listQuery)
	if err != nil {
		writeDelegationDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}
