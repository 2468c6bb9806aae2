package sessions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/bakehouse-backend/internal/cart"
	"github.com/angelmondragon/bakehouse-backend/internal/checkout"
	"github.com/angelmondragon/bakehouse-backend/internal/inventory"
	"github.com/angelmondragon/bakehouse-backend/internal/orders"
	"github.com/angelmondragon/bakehouse-backend/internal/pricing"
	"github.com/angelmondragon/bakehouse-backend/internal/promotions"
	"github.com/angelmondragon/bakehouse-backend/internal/shipping"
	"github.com/angelmondragon/bakehouse-backend/internal/storage"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"
)

// Observer is the union of the cart and checkout telemetry hooks.
type Observer interface {
	cart.Observer
	checkout.Observer
}

// Deps are shared by every session the registry builds.
type Deps struct {
	Store           storage.Store
	Namespace       string
	Inventory       inventory.Source
	Promotions      promotions.Resolver
	Policy          pricing.Policy
	Shipping        *shipping.Catalog
	IDs             *orders.IDGenerator
	ProcessingDelay time.Duration
	Logger          *logger.Logger
	Observer        Observer
	Clock           func() time.Time
}

// Session is one shopper's cart, checkout and order history.
type Session struct {
	ID       string
	Cart     *cart.Cart
	Checkout *checkout.Orchestrator
	History  *orders.History

	mu         sync.Mutex
	loadEvents []cart.Event
}

// TakeLoadEvents returns the reconciliation events from the session load
// once; later calls return nil.
func (s *Session) TakeLoadEvents() []cart.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.loadEvents
	s.loadEvents = nil
	return events
}

// Registry builds each session from the store on first access and keeps it.
type Registry struct {
	deps     Deps
	mu       sync.RWMutex
	sessions map[string]*Session
	group    singleflight.Group
}

func NewRegistry(deps Deps) (*Registry, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("store is required")
	case deps.Inventory == nil:
		return nil, errors.New("inventory source is required")
	case deps.Promotions == nil:
		return nil, errors.New("promotion resolver is required")
	case deps.Shipping == nil:
		return nil, errors.New("shipping catalog is required")
	case deps.IDs == nil:
		return nil, errors.New("order id generator is required")
	case deps.Logger == nil:
		return nil, errors.New("logger is required")
	}
	return &Registry{deps: deps, sessions: map[string]*Session{}}, nil
}

// Get returns the session for id, loading and reconciling it on first use.
// Concurrent first calls for the same id share one load.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("session id is required")
	}
	if s := r.lookup(id); s != nil {
		return s, nil
	}

	v, err, _ := r.group.Do(id, func() (any, error) {
		if s := r.lookup(id); s != nil {
			return s, nil
		}
		s, err := r.load(context.WithoutCancel(ctx), id)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.sessions[id] = s
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (r *Registry) lookup(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

func (r *Registry) load(ctx context.Context, id string) (*Session, error) {
	ctx = r.deps.Logger.WithSessionID(ctx, id)
	keys := storage.Keys{Namespace: r.deps.Namespace, Session: id}

	var cartObserver cart.Observer
	var checkoutObserver checkout.Observer
	if r.deps.Observer != nil {
		cartObserver = r.deps.Observer
		checkoutObserver = r.deps.Observer
	}

	c, err := cart.Load(ctx, cart.Deps{
		Store:      r.deps.Store,
		Keys:       keys,
		Inventory:  r.deps.Inventory,
		Promotions: r.deps.Promotions,
		Policy:     r.deps.Policy,
		Logger:     r.deps.Logger,
		Observer:   cartObserver,
		Clock:      r.deps.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("load cart for session %s: %w", id, err)
	}

	snap, err := r.deps.Inventory.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory snapshot: %w", err)
	}
	outcome, err := c.ReconcileWithInventory(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("reconcile session %s: %w", id, err)
	}

	history, err := orders.NewHistory(r.deps.Store, keys)
	if err != nil {
		return nil, err
	}
	co, err := checkout.New(checkout.Deps{
		Cart:            c,
		History:         history,
		Shipping:        r.deps.Shipping,
		IDs:             r.deps.IDs,
		Keys:            keys,
		Logger:          r.deps.Logger,
		Observer:        checkoutObserver,
		Clock:           r.deps.Clock,
		ProcessingDelay: r.deps.ProcessingDelay,
	})
	if err != nil {
		return nil, err
	}

	if len(outcome.Events) > 0 {
		r.deps.Logger.Info(r.deps.Logger.WithField(ctx, "events", len(outcome.Events)), "session cart reconciled with inventory")
	}
	return &Session{ID: id, Cart: c, Checkout: co, History: history, loadEvents: outcome.Events}, nil
}

// Evict drops the in-memory session; the next Get reloads it from the store.
func (r *Registry) Evict(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len reports how many sessions are loaded.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ReconcileAll reconciles every loaded session against the current
// inventory, returning the events per session id that produced any.
func (r *Registry) ReconcileAll(ctx context.Context) (map[string][]cart.Event, error) {
	snap, err := r.deps.Inventory.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory snapshot: %w", err)
	}

	r.mu.RLock()
	loaded := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		loaded = append(loaded, s)
	}
	r.mu.RUnlock()
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].ID < loaded[j].ID })

	out := map[string][]cart.Event{}
	var errs error
	for _, s := range loaded {
		outcome, err := s.Cart.ReconcileWithInventory(ctx, snap)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("session %s: %w", s.ID, err))
			continue
		}
		if len(outcome.Events) > 0 {
			out[s.ID] = outcome.Events
		}
	}
	return out, errs
}
