package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bakehouse-backend/api/responses"
	"github.com/angelmondragon/bakehouse-backend/api/validators"
	"github.com/angelmondragon/bakehouse-backend/internal/cart"
	"github.com/angelmondragon/bakehouse-backend/internal/sessions"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
)

type addItemRequest struct {
	ID       string          `json:"id" validate:"required"`
	Name     string          `json:"name" validate:"required"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Quantity int             `json:"quantity" validate:"omitempty,min=1"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type promotionRequest struct {
	Code string `json:"code" validate:"required"`
}

type notesRequest struct {
	Notes string `json:"notes" validate:"max=500"`
}

type giftRequest struct {
	IsGift  bool   `json:"is_gift"`
	Wrap    bool   `json:"wrap"`
	Message string `json:"message" validate:"max=250"`
}

type cartMutation func(r *http.Request, s *sessions.Session) (cart.Outcome, error)

// cartHandler runs one mutation against the caller's cart and renders the result.
func cartHandler(provider SessionProvider, logg *logger.Logger, fn cartMutation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := sessionFromRequest(r, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := fn(r, s)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(s.Cart.Snapshot(), outcome.Totals, outcome.Events))
	}
}

func itemID(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "itemID"))
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	return id, nil
}

// CartFetch returns the cart with any reconciliation events from the session load.
func CartFetch(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := sessionFromRequest(r, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(s.Cart.Snapshot(), s.Cart.Totals(), s.TakeLoadEvents()))
	}
}

func CartAddItem(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(provider, logg, func(r *http.Request, s *sessions.Session) (cart.Outcome, error) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return cart.Outcome{}, err
		}
		item, err := cart.NewLineItem(payload.ID, payload.Name, payload.Price, payload.Image)
		if err != nil {
			return cart.Outcome{}, err
		}
		qty := payload.Quantity
		if qty == 0 {
			qty = 1
		}
		return s.Cart.AddItem(r.Context(), item, qty)
	})
}

func CartSetQuantity(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(provider, logg, func(r *http.Request, s *sessions.Session) (cart.Outcome, error) {
		id, err := itemID(r)
		if err != nil {
			return cart.Outcome{}, err
		}
		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return cart.Outcome{}, err
		}
		return s.Cart.SetQuantity(r.Context(), id, payload.Quantity)
	})
}

func CartIncrement(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(provider, logg, func(r *http.Request, s *sessions.Session) (cart.Outcome, error) {
		id, err := itemID(r)
		if err != nil {
			return cart.Outcome{}, err
		}
		return s.Cart.Increment(r.Context(), id)
	})
}

// CartDecrement lowers a line by one; at quantity 1 the outcome carries a
// confirm_removal event and nothing changes.
func CartDecrement(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(provider, logg, func(r *http.Request, s *sessions.Session) (cart.Outcome, error) {
		id, err := itemID(r)
		if err != nil {
			return cart.Outcome{}, err
		}
		return s.Cart.Decrement(r.Context(), id)
	})
}

func CartRemoveItem(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(provider, logg, func(r *http.Request, s *sessions.Session) (cart.Outcome, error) {
		id, err := itemID(r)
		if err != nil {
			return cart.Outcome{}, err
		}
		return s.Cart.RemoveItem(r.Context(), id)
	})
}

func CartSaveForLater(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(provider, logg, func(r *http.Request, s *sessions.Session) (cart.Outcome, error) {
		id, err := itemID(r)
		if err != nil {
			return cart.Outcome{}, err
		}
		return s.Cart.MoveToSavedForLater(r.Context(), id)
	})
}

func CartRestoreSaved(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(provider, logg, func(r *http.Request, s *sessions.Session) (cart.Outcome, error) {
		id, err := itemID(r)
		if err != nil {
			return cart.Outcome{}, err
		}
		return s.Cart.MoveToCart(r.Context(), id)
	})
}

func CartRemoveSaved(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(provider, logg, func(r *http.Request, s *sessions.Session) (cart.Outcome, error) {
		id, err := itemID(r)
		if err != nil {
			return cart.Outcome{}, err
		}
		return s.Cart.RemoveSaved(r.Context(), id)
	})
}

func CartClear(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(provider, logg, func(r *http.Request, s *sessions.Session) (cart.Outcome, error) {
		return s.Cart.Clear(r.Context())
	})
}

func CartApplyPromotion(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(provider, logg, func(r *http.Request, s *sessions.Session) (cart.Outcome, error) {
		var payload promotionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return cart.Outcome{}, err
		}
		return s.Cart.ApplyPromotion(r.Context(), payload.Code)
	})
}

func CartRemovePromotion(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(provider, logg, func(r *http.Request, s *sessions.Session) (cart.Outcome, error) {
		return s.Cart.RemovePromotion(r.Context())
	})
}

func CartSetNotes(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(provider, logg, func(r *http.Request, s *sessions.Session) (cart.Outcome, error) {
		var payload notesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return cart.Outcome{}, err
		}
		return s.Cart.SetNotes(r.Context(), payload.Notes)
	})
}

func CartSetGiftOptions(provider SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(provider, logg, func(r *http.Request, s *sessions.Session) (cart.Outcome, error) {
		var payload giftRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return cart.Outcome{}, err
		}
		return s.Cart.SetGiftOptions(r.Context(), cart.GiftOptions{
			IsGift:  payload.IsGift,
			Wrap:    payload.Wrap,
			Message: payload.Message,
		})
	})
}
