package commands

import (
	"fmt"

	domainerrors "flowsmartly/contexts/identity-access/delegation-service/domain/errors"
)

// unavailable wraps store failures so callers can map them to a deny verdict
// instead of ever treating them as allow.
func unavailable(err error) error {
	return fmt.Errorf("%w: %v", domainerrors.ErrAuthorizationUnavailable, err)
}
