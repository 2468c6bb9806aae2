package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/bakehouse-backend/api/responses"
	"github.com/angelmondragon/bakehouse-backend/api/validators"
	"github.com/angelmondragon/bakehouse-backend/internal/checkout"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
)

type shippingSelectionRequest struct {
	ID         enums.ShippingOptionID `json:"id" validate:"required"`
	PostalCode string                 `json:"postal_code"`
}

type shippingOptionsResponse struct {
	Options []shippingOptionResponse `json:"options"`
	State   enums.CheckoutState      `json:"state"`
}

type checkoutStateResponse struct {
	Valid bool                `json:"valid"`
	State enums.CheckoutState `json:"state"`
}

// CheckoutShippingOptions lists the options available for ?postal_code=.
func CheckoutShippingOptions(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := sessionFromRequest(r, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		opts, err := s.Checkout.ShippingOptions(strings.TrimSpace(r.URL.Query().Get("postal_code")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shippingOptionsResponse{Options: newShippingOptions(opts), State: s.Checkout.State()})
	}
}

// CheckoutSelectShipping stores the shopper's shipping choice on the cart.
func CheckoutSelectShipping(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := sessionFromRequest(r, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload shippingSelectionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := s.Checkout.SelectShipping(r.Context(), payload.ID, payload.PostalCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(s.Cart.Snapshot(), outcome.Totals, outcome.Events))
	}
}

// CheckoutValidate checks the form without placing an order.
func CheckoutValidate(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := sessionFromRequest(r, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var form checkout.Form
		if err := validators.DecodeJSON(r, &form); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := s.Checkout.Validate(r.Context(), form); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checkoutStateResponse{Valid: true, State: s.Checkout.State()})
	}
}

// CheckoutSubmit places the order.
func CheckoutSubmit(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := sessionFromRequest(r, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var form checkout.Form
		if err := validators.DecodeJSON(r, &form); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := s.Checkout.Submit(r.Context(), form)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// CheckoutReset returns a completed checkout to idle.
func CheckoutReset(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := sessionFromRequest(r, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := s.Checkout.Reset(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checkoutStateResponse{Valid: false, State: s.Checkout.State()})
	}
}
