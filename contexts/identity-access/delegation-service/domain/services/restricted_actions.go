package services

import "flowsmartly/contexts/identity-access/delegation-service/domain/entities"

// Financial action kinds that are never allowed under an impersonation
// overlay. Delegated sessions must not move the client's money, independent of
// the agent's own plan or role.
const (
	ActionPayoutRequest        = "payout_request"
	ActionBalanceUpdate        = "balance_update"
	ActionPaymentMethodChange  = "payment_method_change"
	ActionBillingProfileUpdate = "billing_profile_update"
)

var restrictedActions = map[string]struct{}{
	ActionPayoutRequest:        {},
	ActionBalanceUpdate:        {},
	ActionPaymentMethodChange:  {},
	ActionBillingProfileUpdate: {},
}

// IsRestrictedAction reports whether actionKind is denied for the actor. The
// table is fixed: every listed action is denied whenever the actor is
// delegated.
func IsRestrictedAction(actor entities.EffectiveActor, actionKind string) bool {
	if !actor.IsDelegated() {
		return false
	}
	_, restricted := restrictedActions[actionKind]
	return restricted
}

// IsKnownRestrictedKind reports whether actionKind appears in the restriction
// table at all.
func IsKnownRestrictedKind(actionKind string) bool {
	_, ok := restrictedActions[actionKind]
	return ok
}
