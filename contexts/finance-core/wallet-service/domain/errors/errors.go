package errors

import "errors"

var (
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidPayoutMethod  = errors.New("invalid payout method")
	ErrInvalidBillingInput  = errors.New("invalid billing profile input")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrWalletForbidden      = errors.New("wallet does not belong to the caller")
	ErrRestrictedDelegated  = errors.New("financial action restricted while impersonating")
	ErrPayoutRequestMissing = errors.New("payout request not found")
)
