package httpserver

import (
	"net/http"
	"strings"

	"flowsmartly/contexts/identity-access/delegation-service/domain/entities"
	delegationhttp "flowsmartly/contexts/identity-access/delegation-service/transport/http"
)

func (s *Server) handleAgentApply(w http.ResponseWriter, r *http.Request) {
	principalID, ok := s.requireSessionPrincipal(w, r)
	if !ok {
		return
	}

	resp, err := s.delegation.Handler.ApplyAgentHandler(r.Context(), principalID)
	if err != nil {
		writeDelegationDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, resp)
}

func (s *Server) handleAgentReview(w http.ResponseWriter, r *http.Request) {
	adminID, ok := s.requireSessionPrincipal(w, r)
	if !ok {
		return
	}

	var req delegationhttp.ReviewAgentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profileID := strings.TrimSpace(r.PathValue("profile_id"))
	resp, err := s.delegation.Handler.ReviewAgentHandler(r.Context(), profileID, adminID, req)
	if err != nil {
		writeDelegationDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (s *Server) handleAgentSuspend(w http.ResponseWriter, r *http.Request) {
	adminID, ok := s.requireSessionPrincipal(w, r)
	if !ok {
		return
	}

	var req delegationhttp.SuspendAgentRequest
	if r.Body != nil && r.ContentLength > 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	profileID := strings.TrimSpace(r.PathValue("profile_id"))
	resp, err := s.delegation.Handler.SuspendAgentHandler(r.Context(), profileID, adminID, req)
	if err != nil {
		writeDelegationDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (s *Server) handleAgentClientCreate(w http.ResponseWriter, r *http.Request) {
	clientPrincipalID, ok := s.requireSessionPrincipal(w, r)
	if !ok {
		return
	}

	var req delegationhttp.EngageAgentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.delegation.Handler.EngageAgentHandler(r.Context(), clientPrincipalID, req)
	if err != nil {
		writeDelegationDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, resp)
}

func (s *Server) handleAgentClientActivate(w http.ResponseWriter, r *http.Request) {
	clientPrincipalID, ok := s.requireSessionPrincipal(w, r)
	if !ok {
		return
	}

	agentClientID := strings.TrimSpace(r.PathValue("agent_client_id"))
	resp, err := s.delegation.Handler.ActivateRelationshipHandler(r.Context(), agentClientID, clientPrincipalID)
	if err != nil {
		writeDelegationDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (s *Server) handleAgentClientTerminate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := s.requireSessionPrincipal(w, r)
	if !ok {
		return
	}

	var req delegationhttp.TerminateRelationshipRequest
	if r.Body != nil && r.ContentLength > 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	// Which side is terminating is derived inside the use-case from the
	// caller's principal; the transport only distinguishes agent vs client
	// for audit labelling.
	terminator := entities.TerminatedByClient
	if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("as")), "agent") {
		terminator = entities.TerminatedByAgent
	}

	agentClientID := strings.TrimSpace(r.PathValue("agent_client_id"))
	resp, err := s.delegation.Handler.TerminateRelationshipHandler(r.Context(), agentClientID, actorID, terminator, req)
	if err != nil {
		writeDelegationDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}
