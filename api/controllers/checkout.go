package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bundlehubgh/bundlehub-backend/api/middleware"
	"github.com/bundlehubgh/bundlehub-backend/api/responses"
	"github.com/bundlehubgh/bundlehub-backend/api/validators"
	"github.com/bundlehubgh/bundlehub-backend/internal/checkout"
	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/bundlehubgh/bundlehub-backend/pkg/errors"
	"github.com/bundlehubgh/bundlehub-backend/pkg/logger"
)

type checkoutRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
}

type purchaseSingleRequest struct {
	ProductID     string `json:"product_id" validate:"required,uuid"`
	Phone         string `json:"phone,omitempty"`
	Quantity      int    `json:"quantity,omitempty" validate:"omitempty,min=1"`
	PaymentMethod string `json:"payment_method" validate:"required"`
}

func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method"))
			return
		}

		result, err := svc.Checkout(r.Context(), checkout.Input{
			UserID:        userID,
			Email:         middleware.EmailFromContext(r.Context()),
			Role:          role,
			PaymentMethod: method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func PurchaseSingle(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req purchaseSingleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product_id must be a uuid"))
			return
		}
		method, err := enums.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method"))
			return
		}

		result, err := svc.PurchaseSingle(r.Context(), checkout.SingleInput{
			UserID:        userID,
			Email:         middleware.EmailFromContext(r.Context()),
			Role:          role,
			ProductID:     productID,
			Phone:         req.Phone,
			Quantity:      req.Quantity,
			PaymentMethod: method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
