package httpadapter

import (
	"context"
	"log/slog"

	"flowsmartly/contexts/finance-core/wallet-service/application"
	"flowsmartly/contexts/finance-core/wallet-service/ports"
	httptransport "flowsmartly/contexts/finance-core/wallet-service/transport/http"
)

// Handler maps HTTP DTOs to wallet service calls. The credential is the raw
// bearer token; actor resolution happens behind the gate, not here.
type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) GetWalletHandler(ctx context.Context, credential string) (httptransport.WalletResponse, error) {
	wallet, err := h.Service.GetWallet(ctx, credential)
	if err != nil {
		return httptransport.WalletResponse{}, err
	}
	return walletResponse(wallet), nil
}

func (h Handler) RequestPayoutHandler(
	ctx context.Context,
	credential string,
	request httptransport.PayoutRequestBody,
) (httptransport.PayoutResponse, error) {
	payout, err := h.Service.RequestPayout(ctx, credential, request.AmountCents)
	if err != nil {
		return httptransport.PayoutResponse{}, err
	}
	return payoutResponse(payout), nil
}

func (h Handler) ListPayoutsHandler(ctx context.Context, credential string) (httptransport.ListPayoutsResponse, error) {
	payouts, err := h.Service.ListPayouts(ctx, credential)
	if err != nil {
		return httptransport.ListPayoutsResponse{}, err
	}
	items := make([]httptransport.PayoutResponse, 0, len(payouts))
	for _, payout := range payouts {
		items = append(items, payoutResponse(payout))
	}
	return httptransport.ListPayoutsResponse{Payouts: items}, nil
}

func (h Handler) AdjustBalanceHandler(
	ctx context.Context,
	credential string,
	request httptransport.AdjustBalanceRequest,
) (httptransport.WalletResponse, error) {
	wallet, err := h.Service.AdjustBalance(ctx, credential, request.DeltaCents)
	if err != nil {
		return httptransport.WalletResponse{}, err
	}
	return walletResponse(wallet), nil
}

func (h Handler) ChangePayoutMethodHandler(
	ctx context.Context,
	credential string,
	request httptransport.ChangePayoutMethodRequest,
) (httptransport.WalletResponse, error) {
	wallet, err := h.Service.ChangePayoutMethod(ctx, credential, request.PayoutMethod)
	if err != nil {
		return httptransport.WalletResponse{}, err
	}
	return walletResponse(wallet), nil
}

func (h Handler) UpdateBillingProfileHandler(
	ctx context.Context,
	credential string,
	request httptransport.UpdateBillingProfileRequest,
) (httptransport.WalletResponse, error) {
	wallet, err := h.Service.UpdateBillingProfile(ctx, credential, request.BillingProfile)
	if err != nil {
		return httptransport.WalletResponse{}, err
	}
	return walletResponse(wallet), nil
}

func walletResponse(wallet ports.Wallet) httptransport.WalletResponse {
	return httptransport.WalletResponse{
		OwnerID:        wallet.OwnerID,
		BalanceCents:   wallet.BalanceCents,
		Currency:       wallet.Currency,
		PayoutMethod:   wallet.PayoutMethod,
		BillingProfile: wallet.BillingProfile,
		UpdatedAt:      wallet.UpdatedAt,
	}
}

func payoutResponse(payout ports.PayoutRequest) httptransport.PayoutResponse {
	return httptransport.PayoutResponse{
		PayoutID:    payout.PayoutID,
		OwnerID:     payout.OwnerID,
		AmountCents: payout.AmountCents,
		Status:      payout.Status,
		RequestedAt: payout.RequestedAt,
	}
}
