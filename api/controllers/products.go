package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bundlehubgh/bundlehub-backend/api/responses"
	"github.com/bundlehubgh/bundlehub-backend/api/validators"
	"github.com/bundlehubgh/bundlehub-backend/internal/catalog"
	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/bundlehubgh/bundlehub-backend/pkg/errors"
	"github.com/bundlehubgh/bundlehub-backend/pkg/logger"
)

type createProductRequest struct {
	Name        string  `json:"name" validate:"required"`
	Network     string  `json:"network" validate:"required"`
	Volume      string  `json:"volume" validate:"required"`
	PriceUser   string  `json:"price_user" validate:"required"`
	PriceAgent  string  `json:"price_agent" validate:"required"`
	Description *string `json:"description,omitempty"`
}

type updateProductRequest struct {
	Name        *string `json:"name,omitempty"`
	Volume      *string `json:"volume,omitempty"`
	PriceUser   *string `json:"price_user,omitempty"`
	PriceAgent  *string `json:"price_agent,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ProductList serves the catalog with prices resolved for the caller's role.
// Unauthenticated callers see user pricing.
func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := enums.UserRoleUser
		if _, parsed, err := actorFromRequest(r); err == nil {
			role = parsed
		}

		var network *enums.Network
		if raw := strings.TrimSpace(r.URL.Query().Get("network")); raw != "" {
			parsed, err := enums.ParseNetwork(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown network"))
				return
			}
			network = &parsed
		}

		products, err := svc.List(r.Context(), role, network)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

func AdminCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		network, err := enums.ParseNetwork(req.Network)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown network"))
			return
		}
		priceUser, err := decimal.NewFromString(req.PriceUser)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "price_user must be a decimal string"))
			return
		}
		priceAgent, err := decimal.NewFromString(req.PriceAgent)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "price_agent must be a decimal string"))
			return
		}

		product, err := svc.Create(r.Context(), catalog.CreateProductInput{
			Name:        req.Name,
			Network:     network,
			Volume:      req.Volume,
			PriceUser:   priceUser,
			PriceAgent:  priceAgent,
			Description: req.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func AdminUpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.UpdateProductInput{
			Name:        req.Name,
			Volume:      req.Volume,
			Description: req.Description,
		}
		if req.PriceUser != nil {
			price, err := decimal.NewFromString(*req.PriceUser)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "price_user must be a decimal string"))
				return
			}
			input.PriceUser = &price
		}
		if req.PriceAgent != nil {
			price, err := decimal.NewFromString(*req.PriceAgent)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "price_agent must be a decimal string"))
				return
			}
			input.PriceAgent = &price
		}

		product, err := svc.Update(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func AdminDeleteProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
