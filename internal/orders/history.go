package orders

import (
	"context"
	"errors"

	"github.com/angelmondragon/bakehouse-backend/internal/storage"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/pagination"
)

// Page is one slice of order history plus the cursor for the next one.
type Page struct {
	Orders     []Order
	NextCursor string
}

// History reads a session's placed orders.
type History struct {
	store storage.Store
	keys  storage.Keys
}

func NewHistory(store storage.Store, keys storage.Keys) (*History, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	return &History{store: store, keys: keys}, nil
}

// List returns every order, oldest first.
func (h *History) List(ctx context.Context) ([]Order, error) {
	var list []Order
	if _, err := h.store.Get(ctx, h.keys.Orders(), &list); err != nil {
		return nil, err
	}
	out := make([]Order, 0, len(list))
	for _, o := range list {
		out = append(out, o.Clone())
	}
	return out, nil
}

// Page returns up to params.Limit orders placed after params.Cursor, oldest
// first.
func (h *History) Page(ctx context.Context, params pagination.Params) (Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	list, err := h.List(ctx)
	if err != nil {
		return Page{}, err
	}

	start := 0
	if cursor != nil {
		start = -1
		for i, o := range list {
			if o.ID == cursor.ID && o.PlacedAt.Equal(cursor.PlacedAt) {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return Page{}, pkgerrors.New(pkgerrors.CodeValidation, "cursor does not match any order")
		}
	}

	limit := pagination.NormalizeLimit(params.Limit)
	end := min(start+limit, len(list))
	page := Page{Orders: list[start:end]}
	if end < len(list) {
		last := list[end-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{PlacedAt: last.PlacedAt, ID: last.ID})
	}
	return page, nil
}

// Last returns the most recently placed order.
func (h *History) Last(ctx context.Context) (Order, error) {
	var last Order
	found, err := h.store.Get(ctx, h.keys.LastOrder(), &last)
	if err != nil {
		return Order{}, err
	}
	if !found {
		return Order{}, pkgerrors.New(pkgerrors.CodeNotFound, "no order placed yet")
	}
	return last, nil
}

// Get returns the order with id.
func (h *History) Get(ctx context.Context, id string) (Order, error) {
	list, err := h.List(ctx)
	if err != nil {
		return Order{}, err
	}
	for _, o := range list {
		if o.ID == id {
			return o, nil
		}
	}
	return Order{}, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
		WithDetails(map[string]string{"order_id": id})
}

// CommitOps appends order to existing and returns the writes recording it.
// History keys are persistent so backend expiry never drops placed orders.
func CommitOps(keys storage.Keys, existing []Order, order Order) []storage.Op {
	next := make([]Order, 0, len(existing)+1)
	next = append(next, existing...)
	next = append(next, order)
	return []storage.Op{
		storage.PersistentSetOp(keys.Orders(), next),
		storage.PersistentSetOp(keys.LastOrder(), order),
	}
}

// Contains reports whether an order with id exists in list.
func Contains(list []Order, id string) bool {
	for _, o := range list {
		if o.ID == id {
			return true
		}
	}
	return false
}
