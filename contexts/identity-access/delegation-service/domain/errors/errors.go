package errors

import "errors"

var (
	ErrInvalidPrincipalID       = errors.New("invalid principal id")
	ErrInvalidAgentClientID     = errors.New("invalid agent client id")
	ErrInvalidProfileID         = errors.New("invalid agent profile id")
	ErrInvalidReviewDecision    = errors.New("invalid review decision")
	ErrPrincipalNotFound        = errors.New("principal not found")
	ErrNotAnAgent               = errors.New("principal has no agent profile")
	ErrAgentNotApproved         = errors.New("agent profile is not approved")
	ErrAgentAlreadyApplied      = errors.New("agent profile already exists")
	ErrProfileNotFound          = errors.New("agent profile not found")
	ErrProfileNotPending        = errors.New("agent profile is not pending review")
	ErrRelationshipNotFound     = errors.New("agent client relationship not found")
	ErrRelationshipNotActive    = errors.New("agent client relationship is not active")
	ErrRelationshipTerminated   = errors.New("agent client relationship is terminated")
	ErrForbidden                = errors.New("forbidden")
	ErrRestrictedWhileDelegated = errors.New("action is restricted during delegation")
	ErrAuthorizationUnavailable = errors.New("authorization decision unavailable")
	ErrAuditWriteFailed         = errors.New("audit write failed")
)
