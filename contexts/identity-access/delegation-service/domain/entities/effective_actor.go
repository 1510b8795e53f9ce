package entities

import "time"

// ActorKind tags how a request identity was resolved.
type ActorKind string

const (
	ActorDirect    ActorKind = "direct"
	ActorDelegated ActorKind = "delegated"
)

// EffectiveActor is the identity a request is authorized against. For a
// delegated actor, ActorID is the client principal and AgentPrincipalID the
// underlying login; both stay separately queryable.
type EffectiveActor struct {
	Kind             ActorKind  `json:"kind"`
	ActorID          string     `json:"actor_id"`
	AgentPrincipalID string     `json:"agent_principal_id,omitempty"`
	AgentProfileID   string     `json:"agent_profile_id,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
}

// IsDelegated reports whether the actor operates under an impersonation
// overlay.
func (a EffectiveActor) IsDelegated() bool {
	return a.Kind == ActorDelegated
}
