package httptransport

import "time"

type WalletResponse struct {
	OwnerID        string    `json:"owner_id"`
	BalanceCents   int64     `json:"balance_cents"`
	Currency       string    `json:"currency"`
	PayoutMethod   string    `json:"payout_method,omitempty"`
	BillingProfile string    `json:"billing_profile,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type PayoutRequestBody struct {
	AmountCents int64 `json:"amount_cents"`
}

type PayoutResponse struct {
	PayoutID    string    `json:"payout_id"`
	OwnerID     string    `json:"owner_id"`
	AmountCents int64     `json:"amount_cents"`
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requested_at"`
}

type ListPayoutsResponse struct {
	Payouts []PayoutResponse `json:"payouts"`
}

type AdjustBalanceRequest struct {
	DeltaCents int64 `json:"delta_cents"`
}

type ChangePayoutMethodRequest struct {
	PayoutMethod string `json:"payout_method"`
}

type UpdateBillingProfileRequest struct {
	BillingProfile string `json:"billing_profile"`
}
