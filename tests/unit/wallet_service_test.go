package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	wallet "flowsmartly/contexts/finance-core/wallet-service"
	walleterrors "flowsmartly/contexts/finance-core/wallet-service/domain/errors"
	walletports "flowsmartly/contexts/finance-core/wallet-service/ports"
	httptransport "flowsmartly/contexts/finance-core/wallet-service/transport/http"
)

// stubGate stands in for the delegation module's authorization gate.
type stubGate struct {
	allowed  bool
	actorID  string
	err      error
	ownerErr error
}

func (g stubGate) CheckFinancialAction(_ context.Context, _ string, _ string) (bool, string, error) {
	return g.allowed, g.actorID, g.err
}

func (g stubGate) AssertOwnership(_ context.Context, _ string, _ string) error {
	if g.err != nil {
		return g.err
	}
	return g.ownerErr
}

func newWalletModule(t *testing.T, gate walletports.AuthorizationGate) wallet.Module {
	t.Helper()
	module := wallet.NewInMemoryModule(gate, nil)
	module.Store.SeedWallet(walletports.Wallet{
		OwnerID:      "client-1",
		BalanceCents: 10_000,
		Currency:     "USD",
		UpdatedAt:    time.Now().UTC(),
	})
	return module
}

func TestPayoutDebitsBalance(t *testing.T) {
	module := newWalletModule(t, stubGate{allowed: true, actorID: "client-1"})
	ctx := context.Background()

	payout, err := module.Handler.RequestPayoutHandler(ctx, "tok", httptransport.PayoutRequestBody{AmountCents: 4_000})
	if err != nil {
		t.Fatalf("payout failed: %v", err)
	}
	if payout.Status != "pending" || payout.OwnerID != "client-1" {
		t.Fatalf("unexpected payout %+v", payout)
	}

	view, err := module.Handler.GetWalletHandler(ctx, "tok")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if view.BalanceCents != 6_000 {
		t.Fatalf("expected balance 6000 after payout, got %d", view.BalanceCents)
	}

	payouts, err := module.Handler.ListPayoutsHandler(ctx, "tok")
	if err != nil {
		t.Fatalf("list payouts: %v", err)
	}
	if len(payouts.Payouts) != 1 || payouts.Payouts[0].PayoutID != payout.PayoutID {
		t.Fatalf("expected the created payout in history, got %+v", payouts.Payouts)
	}
}

func TestPayoutRejectsOverdraw(t *testing.T) {
	module := newWalletModule(t, stubGate{allowed: true, actorID: "client-1"})

	_, err := module.Handler.RequestPayoutHandler(context.Background(), "tok", httptransport.PayoutRequestBody{AmountCents: 50_000})
	if !errors.Is(err, walleterrors.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestPayoutRejectsNonPositiveAmount(t *testing.T) {
	module := newWalletModule(t, stubGate{allowed: true, actorID: "client-1"})

	for _, amount := range []int64{0, -5} {
		_, err := module.Handler.RequestPayoutHandler(context.Background(), "tok", httptransport.PayoutRequestBody{AmountCents: amount})
		if !errors.Is(err, walleterrors.ErrInvalidAmount) {
			t.Fatalf("amount %d: expected invalid amount, got %v", amount, err)
		}
	}
}

func TestGateDenialBlocksEveryMutation(t *testing.T) {
	module := newWalletModule(t, stubGate{allowed: false, actorID: "client-1"})
	ctx := context.Background()

	if _, err := module.Handler.RequestPayoutHandler(ctx, "tok", httptransport.PayoutRequestBody{AmountCents: 100}); !errors.Is(err, walleterrors.ErrRestrictedDelegated) {
		t.Fatalf("payout: expected restricted error, got %v", err)
	}
	if _, err := module.Handler.AdjustBalanceHandler(ctx, "tok", httptransport.AdjustBalanceRequest{DeltaCents: 100}); !errors.Is(err, walleterrors.ErrRestrictedDelegated) {
		t.Fatalf("adjust: expected restricted error, got %v", err)
	}
	if _, err := module.Handler.ChangePayoutMethodHandler(ctx, "tok", httptransport.ChangePayoutMethodRequest{PayoutMethod: "bank:123"}); !errors.Is(err, walleterrors.ErrRestrictedDelegated) {
		t.Fatalf("payout method: expected restricted error, got %v", err)
	}
	if _, err := module.Handler.UpdateBillingProfileHandler(ctx, "tok", httptransport.UpdateBillingProfileRequest{BillingProfile: "acme gmbh"}); !errors.Is(err, walleterrors.ErrRestrictedDelegated) {
		t.Fatalf("billing: expected restricted error, got %v", err)
	}

	// Reads stay available: a denied gate still resolves the actor.
	view, err := module.Handler.GetWalletHandler(ctx, "tok")
	if err != nil {
		t.Fatalf("get wallet under denial: %v", err)
	}
	if view.BalanceCents != 10_000 {
		t.Fatalf("denied mutations must not touch the balance, got %d", view.BalanceCents)
	}
}

func TestOwnershipMismatchBlocksMutations(t *testing.T) {
	ownerErr := errors.New("actor does not own this wallet")
	module := newWalletModule(t, stubGate{allowed: true, actorID: "client-1", ownerErr: ownerErr})
	ctx := context.Background()

	if _, err := module.Handler.RequestPayoutHandler(ctx, "tok", httptransport.PayoutRequestBody{AmountCents: 100}); !errors.Is(err, ownerErr) {
		t.Fatalf("payout: expected ownership error, got %v", err)
	}
	if _, err := module.Handler.AdjustBalanceHandler(ctx, "tok", httptransport.AdjustBalanceRequest{DeltaCents: 100}); !errors.Is(err, ownerErr) {
		t.Fatalf("adjust: expected ownership error, got %v", err)
	}
	if _, err := module.Handler.ChangePayoutMethodHandler(ctx, "tok", httptransport.ChangePayoutMethodRequest{PayoutMethod: "bank:999"}); !errors.Is(err, ownerErr) {
		t.Fatalf("payout method: expected ownership error, got %v", err)
	}
	if _, err := module.Handler.UpdateBillingProfileHandler(ctx, "tok", httptransport.UpdateBillingProfileRequest{BillingProfile: "evil corp"}); !errors.Is(err, ownerErr) {
		t.Fatalf("billing: expected ownership error, got %v", err)
	}

	wallet, found, err := module.Store.GetWallet(ctx, "client-1")
	if err != nil || !found {
		t.Fatalf("get wallet: found=%v err=%v", found, err)
	}
	if wallet.BalanceCents != 10_000 || wallet.PayoutMethod != "" {
		t.Fatalf("blocked mutations must not touch the wallet, got %+v", wallet)
	}
}

func TestGateErrorFailsClosed(t *testing.T) {
	gateErr := errors.New("authorization backend down")
	module := newWalletModule(t, stubGate{err: gateErr})

	_, err := module.Handler.RequestPayoutHandler(context.Background(), "tok", httptransport.PayoutRequestBody{AmountCents: 100})
	if !errors.Is(err, gateErr) {
		t.Fatalf("gate errors must pass through for transport mapping, got %v", err)
	}
}

func TestAdjustBalanceCreatesWalletOnFirstCredit(t *testing.T) {
	module := newWalletModule(t, stubGate{allowed: true, actorID: "newcomer-1"})

	view, err := module.Handler.AdjustBalanceHandler(context.Background(), "tok", httptransport.AdjustBalanceRequest{DeltaCents: 2_500})
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if view.OwnerID != "newcomer-1" || view.BalanceCents != 2_500 || view.Currency != "USD" {
		t.Fatalf("expected a fresh USD wallet with 2500, got %+v", view)
	}
}

func TestAdjustBalanceRejectsNegativeResult(t *testing.T) {
	module := newWalletModule(t, stubGate{allowed: true, actorID: "client-1"})

	_, err := module.Handler.AdjustBalanceHandler(context.Background(), "tok", httptransport.AdjustBalanceRequest{DeltaCents: -20_000})
	if !errors.Is(err, walleterrors.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}
