package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/bakehouse-backend/api/responses"
	"github.com/angelmondragon/bakehouse-backend/api/validators"
	"github.com/angelmondragon/bakehouse-backend/internal/cart"
	"github.com/angelmondragon/bakehouse-backend/internal/inventory"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
)

// InventoryReplacer installs a new stock snapshot.
type InventoryReplacer interface {
	Snapshot(ctx context.Context) (inventory.Snapshot, error)
	Replace(next inventory.Snapshot)
}

// Reconciler re-checks every loaded cart against the current stock.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (map[string][]cart.Event, error)
}

type inventoryRequest struct {
	Items []inventory.Record `json:"items" validate:"required,min=1,dive"`
}

type inventoryResponse struct {
	Items      []inventory.Record      `json:"items"`
	Reconciled map[string][]cart.Event `json:"reconciled"`
}

// AdminInventoryGet returns the current stock records.
func AdminInventoryGet(source InventoryReplacer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := source.Snapshot(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory"))
			return
		}
		responses.WriteSuccess(w, inventoryResponse{Items: snap.Records(), Reconciled: map[string][]cart.Event{}})
	}
}

// AdminInventoryReplace swaps the stock snapshot and reconciles loaded carts.
func AdminInventoryReplace(source InventoryReplacer, reconciler Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload inventoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap, err := inventory.NewSnapshot(payload.Items...)
		if err != nil {
			if pkgerrors.As(err) == nil {
				err = pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inventory")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		source.Replace(snap)
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "items", snap.Len()), "inventory.replaced")
		}

		reconciled, err := reconciler.ReconcileAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inventoryResponse{Items: snap.Records(), Reconciled: reconciled})
	}
}
