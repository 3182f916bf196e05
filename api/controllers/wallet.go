package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bundlehubgh/bundlehub-backend/api/middleware"
	"github.com/bundlehubgh/bundlehub-backend/api/responses"
	"github.com/bundlehubgh/bundlehub-backend/api/validators"
	"github.com/bundlehubgh/bundlehub-backend/internal/checkout"
	"github.com/bundlehubgh/bundlehub-backend/internal/wallet"
	pkgerrors "github.com/bundlehubgh/bundlehub-backend/pkg/errors"
	"github.com/bundlehubgh/bundlehub-backend/pkg/logger"
	"github.com/bundlehubgh/bundlehub-backend/pkg/paystack"
	"github.com/bundlehubgh/bundlehub-backend/pkg/types"
)

type walletTopUpRequest struct {
	Amount string `json:"amount" validate:"required"`
}

type adminWalletCreditRequest struct {
	UserID    string `json:"user_id" validate:"required,uuid"`
	Amount    string `json:"amount" validate:"required"`
	Reference string `json:"reference" validate:"required"`
	Note      string `json:"note,omitempty"`
}

func WalletBalance(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"balance": balance.StringFixed(2)})
	}
}

func WalletTransactions(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.PaginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, next, err := svc.Transactions(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types.Page{Items: page, NextCursor: next})
	}
}

// WalletTopUp opens a Paystack session that credits the wallet when the
// charge.success webhook lands.
func WalletTopUp(payments checkout.PaymentInitializer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !role.HasWallet() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "wallet is only available to agents"))
			return
		}
		if payments == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "payment gateway is not configured"))
			return
		}

		var req walletTopUpRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || !amount.IsPositive() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive decimal string"))
			return
		}

		session, err := payments.InitializeTransaction(r.Context(), paystack.InitializeRequest{
			Email:  middleware.EmailFromContext(r.Context()),
			Amount: amount.Mul(decimal.NewFromInt(100)).IntPart(),
			Metadata: map[string]any{
				"type":    "wallet",
				"user_id": userID.String(),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initialize top-up"))
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// AdminWalletCredit applies a manual ledger credit through the same atomic
// path as gateway top-ups.
func AdminWalletCredit(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adminWalletCreditRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "user_id must be a uuid"))
			return
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal string"))
			return
		}

		txn, err := svc.Credit(r.Context(), wallet.MutationInput{
			UserID:    userID,
			Amount:    amount,
			Reference: req.Reference,
			Note:      req.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}
