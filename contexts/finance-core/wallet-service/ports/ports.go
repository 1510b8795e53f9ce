package ports

import (
	"context"
	"time"
)

// Action kinds checked against the authorization gate before any wallet
// mutation. The strings are shared vocabulary with identity-access.
const (
	ActionPayoutRequest        = "payout_request"
	ActionBalanceUpdate        = "balance_update"
	ActionPaymentMethodChange  = "payment_method_change"
	ActionBillingProfileUpdate = "billing_profile_update"
)

// Clock abstracts current time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID generation for payout rows.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// AuthorizationGate answers whether the credential's effective actor may run
// a financial action, and who that actor is. Implemented by the delegation
// module; wallet code treats gate errors as deny. AssertOwnership runs after
// wallet state is loaded and fails unless the effective actor owns it.
type AuthorizationGate interface {
	CheckFinancialAction(ctx context.Context, credential string, actionKind string) (allowed bool, actorID string, err error)
	AssertOwnership(ctx context.Context, credential string, resourceOwnerID string) error
}

// Wallet is one user's balance plus payout configuration.
type Wallet struct {
	OwnerID        string    `json:"owner_id"`
	BalanceCents   int64     `json:"balance_cents"`
	Currency       string    `json:"currency"`
	PayoutMethod   string    `json:"payout_method,omitempty"`
	BillingProfile string    `json:"billing_profile,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PayoutRequest is one withdrawal awaiting processing.
type PayoutRequest struct {
	PayoutID    string    `json:"payout_id"`
	OwnerID     string    `json:"owner_id"`
	AmountCents int64     `json:"amount_cents"`
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requested_at"`
}

// Repository is the wallet state store. SaveWallet upserts.
type Repository interface {
	GetWallet(ctx context.Context, ownerID string) (Wallet, bool, error)
	SaveWallet(ctx context.Context, wallet Wallet) error
	CreatePayoutRequest(ctx context.Context, payout PayoutRequest) error
	ListPayoutRequests(ctx context.Context, ownerID string) ([]PayoutRequest, error)
}
