package queries

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainerrors "flowsmartly/contexts/identity-access/delegation-service/domain/errors"
	"flowsmartly/contexts/identity-access/delegation-service/ports"
)

// ActiveDelegationView is the read model for the status endpoint. The
// "not delegating" case is a normal result, never an error.
type ActiveDelegationView struct {
	IsImpersonating   bool       `json:"is_impersonating"`
	ClientPrincipalID string     `json:"client_principal_id,omitempty"`
	AgentProfileID    string     `json:"agent_profile_id,omitempty"`
	AgentClientID     string     `json:"agent_client_id,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
}

// GetActiveDelegationUseCase is a pure read over the open session state.
type GetActiveDelegationUseCase struct {
	Repository ports.Repository
	Logger     *slog.Logger
}

func (u GetActiveDelegationUseCase) Execute(ctx context.Context, principalID string) (ActiveDelegationView, error) {
	if strings.TrimSpace(principalID) == "" {
		return ActiveDelegationView{}, domainerrors.ErrInvalidPrincipalID
	}

	profile, found, err := u.Repository.GetAgentProfileByPrincipal(ctx, principalID)
	if err != nil {
		return ActiveDelegationView{}, unavailable(err)
	}
	if !found {
		return ActiveDelegationView{IsImpersonating: false}, nil
	}

	session, open, err := u.Repository.GetOpenSession(ctx, profile.ProfileID)
	if err != nil {
		return ActiveDelegationView{}, unavailable(err)
	}
	if !open {
		return ActiveDelegationView{IsImpersonating: false}, nil
	}

	startedAt := session.StartedAt
	return ActiveDelegationView{
		IsImpersonating:   true,
		ClientPrincipalID: session.ClientPrincipalID,
		AgentProfileID:    session.AgentProfileID,
		AgentClientID:     session.AgentClientID,
		StartedAt:         &startedAt,
	}, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", domainerrors.ErrAuthorizationUnavailable, err)
}
