package httpserver

import (
	"errors"
	"net/http"

	walleterrors "flowsmartly/contexts/finance-core/wallet-service/domain/errors"
	wallethttp "flowsmartly/contexts/finance-core/wallet-service/transport/http"
	delegationerrors "flowsmartly/contexts/identity-access/delegation-service/domain/errors"
)

func writeWalletDomainError(w http.ResponseWriter, err error) {
	// The gate passes authentication and availability errors through from
	// identity-access; map those first so the taxonomy stays consistent.
	if isSessionError(err) {
		writeSessionDomainError(w, err)
		return
	}
	switch {
	case errors.Is(err, delegationerrors.ErrAuthorizationUnavailable):
		writeFailure(w, http.StatusServiceUnavailable, "authorization state unavailable")
	case errors.Is(err, delegationerrors.ErrForbidden):
		writeFailure(w, http.StatusForbidden, err.Error())
	case errors.Is(err, walleterrors.ErrRestrictedDelegated):
		writeFailure(w, http.StatusForbidden, err.Error())
	case errors.Is(err, walleterrors.ErrWalletForbidden):
		writeFailure(w, http.StatusForbidden, err.Error())
	case errors.Is(err, walleterrors.ErrWalletNotFound),
		errors.Is(err, walleterrors.ErrPayoutRequestMissing):
		writeFailure(w, http.StatusNotFound, err.Error())
	case errors.Is(err, walleterrors.ErrInvalidAmount),
		errors.Is(err, walleterrors.ErrInvalidPayoutMethod),
		errors.Is(err, walleterrors.ErrInvalidBillingInput):
		writeFailure(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, walleterrors.ErrInsufficientBalance):
		writeFailure(w, http.StatusConflict, err.Error())
	default:
		writeFailure(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) requireWalletCredential(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := bearerToken(r)
	if token == "" {
		writeFailure(w, http.StatusUnauthorized, "Authorization bearer token is required")
		return "", false
	}
	return token, true
}

func (s *Server) handleWalletGet(w http.ResponseWriter, r *http.Request) {
	credential, ok := s.requireWalletCredential(w, r)
	if !ok {
		return
	}

	resp, err := s.wallet.Handler.GetWalletHandler(r.Context(), credential)
	if err != nil {
		writeWalletDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (s *Server) handleWalletRequestPayout(w http.ResponseWriter, r *http.Request) {
	credential, ok := s.requireWalletCredential(w, r)
	if !ok {
		return
	}

	var req wallethttp.PayoutRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.wallet.Handler.RequestPayoutHandler(r.Context(), credential, req)
	if err != nil {
		writeWalletDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, resp)
}

func (s *Server) handleWalletListPayouts(w http.ResponseWriter, r *http.Request) {
	credential, ok := s.requireWalletCredential(w, r)
	if !ok {
		return
	}

	resp, err := s.wallet.Handler.ListPayoutsHandler(r.Context(), credential)
	if err != nil {
		writeWalletDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (s *Server) handleWalletAdjustBalance(w http.ResponseWriter, r *http.Request) {
	credential, ok := s.requireWalletCredential(w, r)
	if !ok {
		return
	}

	var req wallethttp.AdjustBalanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.wallet.Handler.AdjustBalanceHandler(r.Context(), credential, req)
	if err != nil {
		writeWalletDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (s *Server) handleWalletChangePayoutMethod(w http.ResponseWriter, r *http.Request) {
	credential, ok := s.requireWalletCredential(w, r)
	if !ok {
		return
	}

	var req wallethttp.ChangePayoutMethodRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.wallet.Handler.ChangePayoutMethodHandler(r.Context(), credential, req)
	if err != nil {
		writeWalletDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (s *Server) handleWalletUpdateBillingProfile(w http.ResponseWriter, r *http.Request) {
	credential, ok := s.requireWalletCredential(w, r)
	if !ok {
		return
	}

	var req wallethttp.UpdateBillingProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.wallet.Handler.UpdateBillingProfileHandler(r.Context(), credential, req)
	if err != nil {
		writeWalletDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}
