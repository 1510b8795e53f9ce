package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	domainerrors "flowsmartly/contexts/finance-core/wallet-service/domain/errors"
	"flowsmartly/contexts/finance-core/wallet-service/ports"
)

const payoutStatusPending = "pending"

// Service runs wallet mutations behind the authorization gate. Every
// money-touching operation checks the gate first and fails closed: a gate
// error denies the action rather than letting it through.
type Service struct {
	Repo   ports.Repository
	Gate   ports.AuthorizationGate
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

// GetWallet is read-only and intentionally not gated beyond actor
// resolution: agents may view the client wallet while impersonating.
func (s Service) GetWallet(ctx context.Context, credential string) (ports.Wallet, error) {
	_, actorID, err := s.Gate.CheckFinancialAction(ctx, credential, "")
	if err != nil {
		return ports.Wallet{}, err
	}
	wallet, found, err := s.Repo.GetWallet(ctx, actorID)
	if err != nil {
		return ports.Wallet{}, err
	}
	if !found {
		return ports.Wallet{}, domainerrors.ErrWalletNotFound
	}
	if err := s.Gate.AssertOwnership(ctx, credential, wallet.OwnerID); err != nil {
		return ports.Wallet{}, err
	}
	return wallet, nil
}

// RequestPayout opens a pending withdrawal for the effective actor's wallet.
func (s Service) RequestPayout(ctx context.Context, credential string, amountCents int64) (ports.PayoutRequest, error) {
	if amountCents <= 0 {
		return ports.PayoutRequest{}, domainerrors.ErrInvalidAmount
	}
	actorID, err := s.authorize(ctx, credential, ports.ActionPayoutRequest)
	if err != nil {
		return ports.PayoutRequest{}, err
	}

	wallet, found, err := s.Repo.GetWallet(ctx, actorID)
	if err != nil {
		return ports.PayoutRequest{}, err
	}
	if !found {
		return ports.PayoutRequest{}, domainerrors.ErrWalletNotFound
	}
	if err := s.Gate.AssertOwnership(ctx, credential, wallet.OwnerID); err != nil {
		return ports.PayoutRequest{}, err
	}
	if wallet.BalanceCents < amountCents {
		return ports.PayoutRequest{}, domainerrors.ErrInsufficientBalance
	}

	payoutID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return ports.PayoutRequest{}, err
	}
	now := s.now()
	payout := ports.PayoutRequest{
		PayoutID:    payoutID,
		OwnerID:     actorID,
		AmountCents: amountCents,
		Status:      payoutStatusPending,
		RequestedAt: now,
	}
	if err := s.Repo.CreatePayoutRequest(ctx, payout); err != nil {
		return ports.PayoutRequest{}, err
	}

	wallet.BalanceCents -= amountCents
	wallet.UpdatedAt = now
	if err := s.Repo.SaveWallet(ctx, wallet); err != nil {
		return ports.PayoutRequest{}, err
	}

	resolveLogger(s.Logger).Info("payout requested",
		"event", "wallet_payout_requested",
		"module", "finance-core/wallet-service",
		"layer", "application",
		"owner_id", actorID,
		"payout_id", payoutID,
		"amount_cents", amountCents,
	)
	return payout, nil
}

// AdjustBalance credits or debits the effective actor's wallet.
func (s Service) AdjustBalance(ctx context.Context, credential string, deltaCents int64) (ports.Wallet, error) {
	if deltaCents == 0 {
		return ports.Wallet{}, domainerrors.ErrInvalidAmount
	}
	actorID, err := s.authorize(ctx, credential, ports.ActionBalanceUpdate)
	if err != nil {
		return ports.Wallet{}, err
	}

	wallet, found, err := s.Repo.GetWallet(ctx, actorID)
	if err != nil {
		return ports.Wallet{}, err
	}
	if !found {
		wallet = ports.Wallet{OwnerID: actorID, Currency: "USD"}
	}
	if err := s.Gate.AssertOwnership(ctx, credential, wallet.OwnerID); err != nil {
		return ports.Wallet{}, err
	}
	if wallet.BalanceCents+deltaCents < 0 {
		return ports.Wallet{}, domainerrors.ErrInsufficientBalance
	}
	wallet.BalanceCents += deltaCents
	wallet.UpdatedAt = s.now()
	if err := s.Repo.SaveWallet(ctx, wallet); err != nil {
		return ports.Wallet{}, err
	}
	return wallet, nil
}

// ChangePayoutMethod replaces the wallet's payout destination.
func (s Service) ChangePayoutMethod(ctx context.Context, credential string, payoutMethod string) (ports.Wallet, error) {
	if strings.TrimSpace(payoutMethod) == "" {
		return ports.Wallet{}, domainerrors.ErrInvalidPayoutMethod
	}
	actorID, err := s.authorize(ctx, credential, ports.ActionPaymentMethodChange)
	if err != nil {
		return ports.Wallet{}, err
	}
	return s.updateWallet(ctx, credential, actorID, func(wallet *ports.Wallet) {
		wallet.PayoutMethod = strings.TrimSpace(payoutMethod)
	})
}

// UpdateBillingProfile replaces the wallet's billing details.
func (s Service) UpdateBillingProfile(ctx context.Context, credential string, billingProfile string) (ports.Wallet, error) {
	if strings.TrimSpace(billingProfile) == "" {
		return ports.Wallet{}, domainerrors.ErrInvalidBillingInput
	}
	actorID, err := s.authorize(ctx, credential, ports.ActionBillingProfileUpdate)
	if err != nil {
		return ports.Wallet{}, err
	}
	return s.updateWallet(ctx, credential, actorID, func(wallet *ports.Wallet) {
		wallet.BillingProfile = strings.TrimSpace(billingProfile)
	})
}

// ListPayouts returns the effective actor's payout history.
func (s Service) ListPayouts(ctx context.Context, credential string) ([]ports.PayoutRequest, error) {
	_, actorID, err := s.Gate.CheckFinancialAction(ctx, credential, "")
	if err != nil {
		return nil, err
	}
	return s.Repo.ListPayoutRequests(ctx, actorID)
}

func (s Service) authorize(ctx context.Context, credential string, actionKind string) (string, error) {
	allowed, actorID, err := s.Gate.CheckFinancialAction(ctx, credential, actionKind)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", domainerrors.ErrRestrictedDelegated
	}
	return actorID, nil
}

func (s Service) updateWallet(ctx context.Context, credential string, ownerID string, apply func(*ports.Wallet)) (ports.Wallet, error) {
	wallet, found, err := s.Repo.GetWallet(ctx, ownerID)
	if err != nil {
		return ports.Wallet{}, err
	}
	if !found {
		wallet = ports.Wallet{OwnerID: ownerID, Currency: "USD"}
	}
	if err := s.Gate.AssertOwnership(ctx, credential, wallet.OwnerID); err != nil {
		return ports.Wallet{}, err
	}
	apply(&wallet)
	wallet.UpdatedAt = s.now()
	if err := s.Repo.SaveWallet(ctx, wallet); err != nil {
		return ports.Wallet{}, err
	}
	return wallet, nil
}

func (s Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
