package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/bakehouse-backend/internal/inventory"
	"github.com/angelmondragon/bakehouse-backend/internal/pricing"
	"github.com/angelmondragon/bakehouse-backend/internal/promotions"
	"github.com/angelmondragon/bakehouse-backend/internal/storage"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
)

// Observer receives cart telemetry.
type Observer interface {
	ObserveCartOperation(op, outcome string)
	ObserveCartEvent(eventType string)
}

type nopObserver struct{}

func (nopObserver) ObserveCartOperation(string, string) {}
func (nopObserver) ObserveCartEvent(string)             {}

// Deps wires a cart to its collaborators.
type Deps struct {
	Store      storage.Store
	Keys       storage.Keys
	Inventory  inventory.Source
	Promotions promotions.Resolver
	Policy     pricing.Policy
	Logger     *logger.Logger
	Observer   Observer
	Clock      func() time.Time
}

func (d Deps) validate() error {
	switch {
	case d.Store == nil:
		return errors.New("store is required")
	case d.Keys.Session == "":
		return errors.New("session key is required")
	case d.Inventory == nil:
		return errors.New("inventory source is required")
	case d.Promotions == nil:
		return errors.New("promotion resolver is required")
	case d.Logger == nil:
		return errors.New("logger is required")
	}
	return nil
}

// Cart is one session's cart aggregate. Every operation holds mu across
// load, mutation and save, so concurrent callers never lose updates.
type Cart struct {
	mu       sync.Mutex
	state    State
	store    storage.Store
	keys     storage.Keys
	stock    inventory.Source
	promos   promotions.Resolver
	policy   pricing.Policy
	logg     *logger.Logger
	observer Observer
	now      func() time.Time
}

// Load builds the aggregate from whatever the store holds for the session.
func Load(ctx context.Context, deps Deps) (*Cart, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	c := &Cart{
		store:    deps.Store,
		keys:     deps.Keys,
		stock:    deps.Inventory,
		promos:   deps.Promotions,
		policy:   deps.Policy,
		logg:     deps.Logger,
		observer: deps.Observer,
		now:      deps.Clock,
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.now == nil {
		c.now = time.Now
	}

	state, err := c.read(ctx)
	if err != nil {
		return nil, err
	}
	c.state = state
	return c, nil
}

func (c *Cart) read(ctx context.Context) (State, error) {
	var (
		state  State
		millis int64
	)
	reads := []struct {
		key  string
		dest any
	}{
		{c.keys.Cart(), &state.Items},
		{c.keys.SavedForLater(), &state.Saved},
		{c.keys.Promotion(), &state.Promotion},
		{c.keys.Notes(), &state.Notes},
		{c.keys.GiftOptions(), &state.Gift},
		{c.keys.Shipping(), &state.Shipping},
		{c.keys.LastInteraction(), &millis},
	}
	for _, r := range reads {
		if _, err := c.store.Get(ctx, r.key, r.dest); err != nil {
			return State{}, err
		}
	}
	if millis > 0 {
		state.LastInteraction = time.UnixMilli(millis).UTC()
	}
	state.Items = c.sanitize(ctx, state.Items, false)
	state.Saved = c.sanitize(ctx, state.Saved, true)
	state.Saved = dropOverlap(state.Saved, state.Items)
	if state.Gift.Validate() != nil {
		state.Gift = GiftOptions{}
	}
	return state, nil
}

// sanitize drops stored lines that would break the cart invariants.
func (c *Cart) sanitize(ctx context.Context, items []LineItem, saved bool) []LineItem {
	out := make([]LineItem, 0, len(items))
	seen := map[string]struct{}{}
	for _, item := range items {
		if saved {
			item.Quantity = 1
		}
		if _, dup := seen[item.ID]; dup || item.validate() != nil {
			c.logg.Warn(c.logg.WithField(ctx, "item_id", item.ID), "dropping invalid stored cart line")
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

func dropOverlap(saved, items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(saved))
	for _, s := range saved {
		if indexOf(items, s.ID) < 0 {
			out = append(out, s)
		}
	}
	return out
}

// field marks which persisted keys a mutation touched.
type field uint8

const (
	fieldItems field = 1 << iota
	fieldSaved
	fieldPromotion
	fieldNotes
	fieldGift
	fieldShipping
)

type mutation func(next *State, snap inventory.Snapshot) (field, []Event, error)

// mutate runs fn on a clone, persists the touched keys in one batch, and
// only then swaps the clone in. A failed write leaves memory untouched.
func (c *Cart) mutate(ctx context.Context, op string, fn mutation) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	outcome, err := c.mutateLocked(ctx, op, fn)
	c.observe(op, outcome.Events, err)
	return outcome, err
}

func (c *Cart) mutateLocked(ctx context.Context, op string, fn mutation) (Outcome, error) {
	snap, err := c.stock.Snapshot(ctx)
	if err != nil {
		return Outcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory snapshot")
	}

	next := c.state.Clone()
	touched, events, err := fn(&next, snap)
	if err != nil {
		return Outcome{}, err
	}
	if touched == 0 {
		return Outcome{Events: events, Totals: c.totalsLocked()}, nil
	}

	next.LastInteraction = c.now().UTC()
	if err := c.store.Apply(ctx, c.opsFor(next, touched)...); err != nil {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"op": op, "error": err.Error()}), "cart write failed")
		return Outcome{}, err
	}
	c.state = next
	return Outcome{Events: events, Totals: c.totalsLocked()}, nil
}

func (c *Cart) opsFor(s State, touched field) []storage.Op {
	ops := make([]storage.Op, 0, 7)
	if touched&fieldItems != 0 {
		ops = append(ops, storage.SetOp(c.keys.Cart(), s.Items))
	}
	if touched&fieldSaved != 0 {
		ops = append(ops, storage.SetOp(c.keys.SavedForLater(), s.Saved))
	}
	if touched&fieldPromotion != 0 {
		ops = append(ops, optionalOp(c.keys.Promotion(), s.Promotion))
	}
	if touched&fieldNotes != 0 {
		ops = append(ops, storage.SetOp(c.keys.Notes(), s.Notes))
	}
	if touched&fieldGift != 0 {
		ops = append(ops, storage.SetOp(c.keys.GiftOptions(), s.Gift))
	}
	if touched&fieldShipping != 0 {
		ops = append(ops, optionalOp(c.keys.Shipping(), s.Shipping))
	}
	return append(ops, storage.SetOp(c.keys.LastInteraction(), s.LastInteraction.UnixMilli()))
}

func optionalOp[T any](key string, v *T) storage.Op {
	if v == nil {
		return storage.RemoveOp(key)
	}
	return storage.SetOp(key, v)
}

func (c *Cart) observe(op string, events []Event, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(pkgerrors.CodeInternal)
		if typed := pkgerrors.As(err); typed != nil {
			outcome = string(typed.Code())
		}
	}
	c.observer.ObserveCartOperation(op, outcome)
	for _, ev := range events {
		c.observer.ObserveCartEvent(string(ev.Type))
	}
}

func (c *Cart) totalsLocked() pricing.Breakdown {
	return pricing.Price(c.state.PricingInput(c.policy))
}

// Snapshot returns a deep copy of the current state.
func (c *Cart) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Totals prices the current state.
func (c *Cart) Totals() pricing.Breakdown {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalsLocked()
}

// LastInteraction is when the cart was last mutated; zero if never.
func (c *Cart) LastInteraction() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.LastInteraction
}

// Policy exposes the pricing policy the cart prices with.
func (c *Cart) Policy() pricing.Policy {
	return c.policy
}

// CommitOrder hands the current state and its totals to build, then writes
// the returned ops together with an emptied cart, a removed promotion and
// reset notes and gift options. Memory is cleared only after the write lands.
func (c *Cart) CommitOrder(ctx context.Context, build func(State, pricing.Breakdown) ([]storage.Op, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.IsEmpty() {
		return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}
	snapshot := c.state.Clone()
	ops, err := build(snapshot, c.totalsLocked())
	if err != nil {
		return err
	}

	next := c.state.Clone()
	next.Items = []LineItem{}
	next.Promotion = nil
	next.Notes = ""
	next.Gift = GiftOptions{}
	next.LastInteraction = c.now().UTC()

	ops = append(ops, c.opsFor(next, fieldItems|fieldPromotion|fieldNotes|fieldGift)...)
	if err := c.store.Apply(ctx, ops...); err != nil {
		c.observe("commit_order", nil, err)
		return err
	}
	c.state = next
	c.observe("commit_order", nil, nil)
	return nil
}
