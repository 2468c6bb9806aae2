package cart

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/angelmondragon/bakehouse-backend/internal/inventory"
	"github.com/angelmondragon/bakehouse-backend/internal/promotions"
	"github.com/angelmondragon/bakehouse-backend/internal/shipping"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
)

// clamp caps want at the item's stock. Items without a record are unconstrained.
func clamp(snap inventory.Snapshot, id string, want int) (int, *Event) {
	rec, ok := snap.Lookup(id)
	if !ok || want <= rec.Stock {
		return want, nil
	}
	return rec.Stock, &Event{
		Type:      enums.CartEventStockLimited,
		ItemID:    id,
		Requested: want,
		Quantity:  rec.Stock,
		Stock:     rec.Stock,
	}
}

func outOfStock(snap inventory.Snapshot, id string) bool {
	rec, ok := snap.Lookup(id)
	return ok && rec.Stock == 0
}

func outOfStockError(id string) error {
	return pkgerrors.New(pkgerrors.CodeOutOfStock, "item is out of stock").
		WithDetails(map[string]string{"item_id": id})
}

func notInCart(id string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart").
		WithDetails(map[string]string{"item_id": id})
}

func appendEvent(events []Event, ev *Event) []Event {
	if ev == nil {
		return events
	}
	return append(events, *ev)
}

// AddItem merges qty of item into the cart, clamped to stock.
func (c *Cart) AddItem(ctx context.Context, item LineItem, qty int) (Outcome, error) {
	if qty < 1 {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
			WithDetails(map[string]string{"quantity": "must be at least 1"})
	}
	item.Quantity = 1
	if err := item.validate(); err != nil {
		return Outcome{}, err
	}

	return c.mutate(ctx, "add_item", func(next *State, snap inventory.Snapshot) (field, []Event, error) {
		if outOfStock(snap, item.ID) {
			return 0, nil, outOfStockError(item.ID)
		}

		var touched field
		if idx := indexOf(next.Saved, item.ID); idx >= 0 {
			next.Saved = without(next.Saved, idx)
			touched |= fieldSaved
		}

		idx := indexOf(next.Items, item.ID)
		want := qty
		if idx >= 0 {
			want += next.Items[idx].Quantity
		}
		got, ev := clamp(snap, item.ID, want)
		events := appendEvent(nil, ev)

		if idx < 0 {
			item.Quantity = got
			next.Items = append(next.Items, item)
			return touched | fieldItems, events, nil
		}
		if next.Items[idx].Quantity != got {
			next.Items[idx].Quantity = got
			touched |= fieldItems
		}
		return touched, events, nil
	})
}

// RemoveItem deletes the line; absent ids are a no-op.
func (c *Cart) RemoveItem(ctx context.Context, id string) (Outcome, error) {
	return c.mutate(ctx, "remove_item", func(next *State, _ inventory.Snapshot) (field, []Event, error) {
		idx := indexOf(next.Items, id)
		if idx < 0 {
			return 0, nil, nil
		}
		next.Items = without(next.Items, idx)
		return fieldItems, nil, nil
	})
}

// SetQuantity replaces the line quantity, clamped to stock. Use RemoveItem for zero.
func (c *Cart) SetQuantity(ctx context.Context, id string, qty int) (Outcome, error) {
	if qty < 1 {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1; remove the item instead").
			WithDetails(map[string]string{"quantity": "must be at least 1"})
	}
	return c.mutate(ctx, "set_quantity", func(next *State, snap inventory.Snapshot) (field, []Event, error) {
		return setQuantity(next, snap, id, qty)
	})
}

func setQuantity(next *State, snap inventory.Snapshot, id string, qty int) (field, []Event, error) {
	idx := indexOf(next.Items, id)
	if idx < 0 {
		return 0, nil, notInCart(id)
	}
	if outOfStock(snap, id) {
		return 0, nil, outOfStockError(id)
	}
	got, ev := clamp(snap, id, qty)
	events := appendEvent(nil, ev)
	if next.Items[idx].Quantity == got {
		return 0, events, nil
	}
	next.Items[idx].Quantity = got
	return fieldItems, events, nil
}

// Increment raises the line quantity by one.
func (c *Cart) Increment(ctx context.Context, id string) (Outcome, error) {
	return c.mutate(ctx, "increment", func(next *State, snap inventory.Snapshot) (field, []Event, error) {
		idx := indexOf(next.Items, id)
		if idx < 0 {
			return 0, nil, notInCart(id)
		}
		return setQuantity(next, snap, id, next.Items[idx].Quantity+1)
	})
}

// Decrement lowers the line quantity by one. At quantity 1 it leaves the line
// alone and reports confirm_removal so the caller can ask before deleting.
func (c *Cart) Decrement(ctx context.Context, id string) (Outcome, error) {
	return c.mutate(ctx, "decrement", func(next *State, snap inventory.Snapshot) (field, []Event, error) {
		idx := indexOf(next.Items, id)
		if idx < 0 {
			return 0, nil, notInCart(id)
		}
		if next.Items[idx].Quantity <= 1 {
			return 0, []Event{{Type: enums.CartEventConfirmRemoval, ItemID: id, Quantity: next.Items[idx].Quantity}}, nil
		}
		next.Items[idx].Quantity--
		return fieldItems, nil, nil
	})
}

// MoveToSavedForLater parks the line with quantity 1. Ids not in the cart are a no-op.
func (c *Cart) MoveToSavedForLater(ctx context.Context, id string) (Outcome, error) {
	return c.mutate(ctx, "save_for_later", func(next *State, _ inventory.Snapshot) (field, []Event, error) {
		idx := indexOf(next.Items, id)
		if idx < 0 {
			return 0, nil, nil
		}
		moveToSaved(next, idx)
		return fieldItems | fieldSaved, nil, nil
	})
}

func moveToSaved(next *State, idx int) {
	item := next.Items[idx]
	next.Items = without(next.Items, idx)
	item.Quantity = 1
	if indexOf(next.Saved, item.ID) < 0 {
		next.Saved = append(next.Saved, item)
	}
}

// MoveToCart returns a saved item to the cart, merging into an existing line.
func (c *Cart) MoveToCart(ctx context.Context, id string) (Outcome, error) {
	return c.mutate(ctx, "move_to_cart", func(next *State, snap inventory.Snapshot) (field, []Event, error) {
		sidx := indexOf(next.Saved, id)
		if sidx < 0 {
			return 0, nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not saved for later").
				WithDetails(map[string]string{"item_id": id})
		}
		if outOfStock(snap, id) {
			return 0, nil, outOfStockError(id)
		}
		saved := next.Saved[sidx]
		next.Saved = without(next.Saved, sidx)

		idx := indexOf(next.Items, id)
		want := saved.Quantity
		if idx >= 0 {
			want += next.Items[idx].Quantity
		}
		got, ev := clamp(snap, id, want)
		if idx >= 0 {
			next.Items[idx].Quantity = got
		} else {
			saved.Quantity = got
			next.Items = append(next.Items, saved)
		}
		return fieldItems | fieldSaved, appendEvent(nil, ev), nil
	})
}

// RemoveSaved discards a saved item; absent ids are a no-op.
func (c *Cart) RemoveSaved(ctx context.Context, id string) (Outcome, error) {
	return c.mutate(ctx, "remove_saved", func(next *State, _ inventory.Snapshot) (field, []Event, error) {
		idx := indexOf(next.Saved, id)
		if idx < 0 {
			return 0, nil, nil
		}
		next.Saved = without(next.Saved, idx)
		return fieldSaved, nil, nil
	})
}

// ReconcileWithInventory aligns the cart with snap: out of stock lines move to
// saved for later, oversized lines are clamped, and low stock is reported
// without mutation. Running it again on the result changes nothing and emits
// no out_of_stock or limited_stock events; low_stock advisories repeat on
// every run while the item stays low.
func (c *Cart) ReconcileWithInventory(ctx context.Context, snap inventory.Snapshot) (Outcome, error) {
	return c.mutate(ctx, "reconcile", func(next *State, _ inventory.Snapshot) (field, []Event, error) {
		var (
			touched field
			events  []Event
		)
		for i := 0; i < len(next.Items); {
			item := next.Items[i]
			rec, ok := snap.Lookup(item.ID)
			switch {
			case !ok:
				i++
			case rec.Stock == 0:
				moveToSaved(next, i)
				touched |= fieldItems | fieldSaved
				events = append(events, Event{Type: enums.CartEventOutOfStock, ItemID: item.ID, Requested: item.Quantity})
			case item.Quantity > rec.Stock:
				next.Items[i].Quantity = rec.Stock
				touched |= fieldItems
				events = append(events, Event{
					Type:      enums.CartEventLimitedStock,
					ItemID:    item.ID,
					Requested: item.Quantity,
					Quantity:  rec.Stock,
					Stock:     rec.Stock,
				})
				i++
			case rec.IsLow():
				events = append(events, Event{Type: enums.CartEventLowStock, ItemID: item.ID, Quantity: item.Quantity, Stock: rec.Stock})
				i++
			default:
				i++
			}
		}
		return touched, events, nil
	})
}

// Clear empties the active items; saved items and the promotion stay.
func (c *Cart) Clear(ctx context.Context) (Outcome, error) {
	return c.mutate(ctx, "clear", func(next *State, _ inventory.Snapshot) (field, []Event, error) {
		if len(next.Items) == 0 {
			return 0, nil, nil
		}
		next.Items = []LineItem{}
		return fieldItems, nil, nil
	})
}

// ApplyPromotion activates code, replacing any other active promotion.
func (c *Cart) ApplyPromotion(ctx context.Context, code string) (Outcome, error) {
	normalized := promotions.Normalize(code)
	if normalized == "" {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "promotion code is required").
			WithDetails(map[string]string{"code": "is required"})
	}
	return c.mutate(ctx, "apply_promotion", func(next *State, _ inventory.Snapshot) (field, []Event, error) {
		if next.Promotion != nil && next.Promotion.Code == normalized {
			return 0, nil, pkgerrors.New(pkgerrors.CodePromotionAlreadyApplied, "promotion already applied").
				WithDetails(map[string]string{"code": normalized})
		}
		promo, err := c.promos.Resolve(normalized)
		if err != nil {
			return 0, nil, err
		}
		next.Promotion = &promo
		return fieldPromotion, nil, nil
	})
}

// RemovePromotion drops the active promotion, if any.
func (c *Cart) RemovePromotion(ctx context.Context) (Outcome, error) {
	return c.mutate(ctx, "remove_promotion", func(next *State, _ inventory.Snapshot) (field, []Event, error) {
		if next.Promotion == nil {
			return 0, nil, nil
		}
		next.Promotion = nil
		return fieldPromotion, nil, nil
	})
}

// SetNotes stores the shopper's free-text order notes.
func (c *Cart) SetNotes(ctx context.Context, notes string) (Outcome, error) {
	notes = strings.TrimSpace(notes)
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "notes too long").
			WithDetails(map[string]string{"notes": fmt.Sprintf("must be at most %d characters", MaxNotesLength)})
	}
	return c.mutate(ctx, "set_notes", func(next *State, _ inventory.Snapshot) (field, []Event, error) {
		if next.Notes == notes {
			return 0, nil, nil
		}
		next.Notes = notes
		return fieldNotes, nil, nil
	})
}

// SetGiftOptions replaces the gift preferences.
func (c *Cart) SetGiftOptions(ctx context.Context, opts GiftOptions) (Outcome, error) {
	if err := opts.Validate(); err != nil {
		return Outcome{}, err
	}
	return c.mutate(ctx, "set_gift_options", func(next *State, _ inventory.Snapshot) (field, []Event, error) {
		if next.Gift == opts {
			return 0, nil, nil
		}
		next.Gift = opts
		return fieldGift, nil, nil
	})
}

// SelectShipping makes opt the priced delivery method.
func (c *Cart) SelectShipping(ctx context.Context, opt shipping.Option) (Outcome, error) {
	if !opt.ID.IsValid() || opt.Price.IsNegative() {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping option").
			WithDetails(map[string]string{"shipping_option": string(opt.ID)})
	}
	return c.mutate(ctx, "select_shipping", func(next *State, _ inventory.Snapshot) (field, []Event, error) {
		if next.Shipping != nil && next.Shipping.ID == opt.ID && next.Shipping.Price.Equal(opt.Price) {
			return 0, nil, nil
		}
		selected := opt
		next.Shipping = &selected
		return fieldShipping, nil, nil
	})
}
