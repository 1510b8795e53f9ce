package services

import (
	"flowsmartly/contexts/identity-access/delegation-service/domain/entities"
	domainerrors "flowsmartly/contexts/identity-access/delegation-service/domain/errors"
)

// AssertOwnership fails unless the effective actor is the resource owner.
// Routes call this instead of comparing ids inline.
func AssertOwnership(actor entities.EffectiveActor, resourceOwnerID string) error {
	if actor.ActorID == "" || resourceOwnerID == "" {
		return domainerrors.ErrForbidden
	}
	if actor.ActorID != resourceOwnerID {
		return domainerrors.ErrForbidden
	}
	return nil
}
