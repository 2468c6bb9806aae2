package checkout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/bakehouse-backend/internal/cart"
	"github.com/angelmondragon/bakehouse-backend/internal/orders"
	"github.com/angelmondragon/bakehouse-backend/internal/pricing"
	"github.com/angelmondragon/bakehouse-backend/internal/shipping"
	"github.com/angelmondragon/bakehouse-backend/internal/storage"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
	"github.com/go-playground/validator/v10"
)

// Observer receives checkout telemetry.
type Observer interface {
	ObserveCheckout(outcome string)
	ObserveOrderTotal(total float64)
}

type nopObserver struct{}

func (nopObserver) ObserveCheckout(string)    {}
func (nopObserver) ObserveOrderTotal(float64) {}

// Deps wires an orchestrator to its session's collaborators.
type Deps struct {
	Cart            *cart.Cart
	History         *orders.History
	Shipping        *shipping.Catalog
	IDs             *orders.IDGenerator
	Keys            storage.Keys
	Logger          *logger.Logger
	Observer        Observer
	Clock           func() time.Time
	ProcessingDelay time.Duration
}

// Orchestrator drives one session's checkout through
// idle, form_validation, submitting and completed.
type Orchestrator struct {
	mu        sync.Mutex
	state     enums.CheckoutState
	lastOrder *orders.Order

	submitting atomic.Bool

	cart     *cart.Cart
	history  *orders.History
	catalog  *shipping.Catalog
	ids      *orders.IDGenerator
	keys     storage.Keys
	validate *validator.Validate
	logg     *logger.Logger
	observer Observer
	now      func() time.Time
	delay    time.Duration
}

func New(deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Cart == nil:
		return nil, errors.New("cart is required")
	case deps.History == nil:
		return nil, errors.New("order history is required")
	case deps.Shipping == nil:
		return nil, errors.New("shipping catalog is required")
	case deps.IDs == nil:
		return nil, errors.New("order id generator is required")
	case deps.Logger == nil:
		return nil, errors.New("logger is required")
	}
	o := &Orchestrator{
		state:    enums.CheckoutStateIdle,
		cart:     deps.Cart,
		history:  deps.History,
		catalog:  deps.Shipping,
		ids:      deps.IDs,
		keys:     deps.Keys,
		logg:     deps.Logger,
		observer: deps.Observer,
		now:      deps.Clock,
		delay:    deps.ProcessingDelay,
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}
	if o.now == nil {
		o.now = time.Now
	}
	o.validate = newValidator(o.now)
	return o, nil
}

// State reports the current checkout state.
func (o *Orchestrator) State() enums.CheckoutState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) transition(ctx context.Context, to enums.CheckoutState) {
	o.mu.Lock()
	from := o.state
	o.state = to
	o.mu.Unlock()
	if from != to {
		o.logg.Debug(o.logg.WithFields(ctx, map[string]any{"from": from.String(), "to": to.String()}), "checkout state changed")
	}
}

// ShippingOptions lists the delivery options for postalCode.
func (o *Orchestrator) ShippingOptions(postalCode string) ([]shipping.Option, error) {
	return o.catalog.OptionsFor(postalCode)
}

// SelectShipping selects option id for postalCode on the cart.
func (o *Orchestrator) SelectShipping(ctx context.Context, id enums.ShippingOptionID, postalCode string) (cart.Outcome, error) {
	opt, err := o.catalog.Find(id, postalCode)
	if err != nil {
		return cart.Outcome{}, err
	}
	return o.cart.SelectShipping(ctx, opt)
}

// Validate checks form field by field. Any failure returns the checkout to
// idle with a VALIDATION_ERROR whose details map field names to messages.
func (o *Orchestrator) Validate(ctx context.Context, form Form) error {
	if o.submitting.Load() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is submitting")
	}
	_, err := o.validateForm(ctx, form)
	return err
}

func (o *Orchestrator) validateForm(ctx context.Context, form Form) (Form, error) {
	o.transition(ctx, enums.CheckoutStateFormValidation)
	form = form.normalized()

	failures := map[string]string{}
	if err := o.validate.Struct(form); err != nil {
		fields, ok := fieldFailures(err)
		if !ok {
			o.transition(ctx, enums.CheckoutStateIdle)
			return Form{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "validate checkout form")
		}
		failures = fields
	}
	if _, bad := failures["postal_code"]; !bad {
		if sel := o.cart.Snapshot().Shipping; sel != nil {
			if _, err := o.catalog.Find(sel.ID, form.PostalCode); err != nil {
				failures["shipping_option"] = "is not available for this postal code"
			}
		}
	}

	if len(failures) > 0 {
		o.transition(ctx, enums.CheckoutStateIdle)
		return Form{}, pkgerrors.New(pkgerrors.CodeValidation, "checkout form invalid").WithDetails(failures)
	}
	return form, nil
}

// Submit validates form and places the order. Only one submission may be
// in flight; the order is written in the same batch that empties the cart.
func (o *Orchestrator) Submit(ctx context.Context, form Form) (orders.Order, error) {
	if !o.submitting.CompareAndSwap(false, true) {
		o.observer.ObserveCheckout(string(pkgerrors.CodeDuplicateSubmission))
		return orders.Order{}, pkgerrors.New(pkgerrors.CodeDuplicateSubmission, "an order submission is already in progress")
	}
	defer o.submitting.Store(false)

	order, err := o.submit(ctx, form)
	if err != nil {
		o.observer.ObserveCheckout(outcomeOf(err))
		return orders.Order{}, err
	}
	o.observer.ObserveCheckout("completed")
	o.observer.ObserveOrderTotal(order.Breakdown.Total.InexactFloat64())
	return order, nil
}

func (o *Orchestrator) submit(ctx context.Context, form Form) (orders.Order, error) {
	if o.cart.Snapshot().IsEmpty() {
		return orders.Order{}, pkgerrors.New(pkgerrors.CodeEmptyCart, "cannot check out an empty cart")
	}
	form, err := o.validateForm(ctx, form)
	if err != nil {
		return orders.Order{}, err
	}

	o.transition(ctx, enums.CheckoutStateSubmitting)
	if err := o.wait(ctx); err != nil {
		o.transition(ctx, enums.CheckoutStateFormValidation)
		return orders.Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order processing interrupted")
	}

	existing, err := o.history.List(ctx)
	if err != nil {
		o.transition(ctx, enums.CheckoutStateFormValidation)
		return orders.Order{}, err
	}

	var placed orders.Order
	err = o.cart.CommitOrder(ctx, func(snapshot cart.State, totals pricing.Breakdown) ([]storage.Op, error) {
		id, err := o.ids.Next(func(id string) bool { return orders.Contains(existing, id) })
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint order id")
		}
		placed = o.assemble(id, form, snapshot, totals)
		return orders.CommitOps(o.keys, existing, placed), nil
	})
	if err != nil {
		o.transition(ctx, enums.CheckoutStateFormValidation)
		o.logg.Warn(o.logg.WithField(ctx, "error", err.Error()), "order submission failed")
		return orders.Order{}, err
	}

	o.mu.Lock()
	o.lastOrder = &placed
	o.mu.Unlock()
	o.transition(ctx, enums.CheckoutStateCompleted)
	o.logg.Info(o.logg.WithOrderID(ctx, placed.ID), "order placed")
	return placed.Clone(), nil
}

func (o *Orchestrator) wait(ctx context.Context) error {
	if o.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(o.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (o *Orchestrator) assemble(id string, form Form, snapshot cart.State, totals pricing.Breakdown) orders.Order {
	option := o.catalog.Standard()
	if snapshot.Shipping != nil {
		option = *snapshot.Shipping
	}
	return orders.Order{
		ID:        id,
		Items:     snapshot.Items,
		Breakdown: totals.Rounded(),
		Promotion: snapshot.Promotion,
		Shipping:  orders.ShippingSelection{Option: option, Address: form.address()},
		Contact:   form.contact(),
		Payment:   form.payment(),
		Gift:      snapshot.Gift,
		Notes:     snapshot.Notes,
		PlacedAt:  o.now().UTC(),
	}
}

// LastOrder is the order placed by the most recent successful Submit.
func (o *Orchestrator) LastOrder() (orders.Order, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastOrder == nil {
		return orders.Order{}, false
	}
	return o.lastOrder.Clone(), true
}

// Reset returns the checkout to idle for the next purchase.
func (o *Orchestrator) Reset(ctx context.Context) error {
	if o.submitting.Load() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is submitting")
	}
	o.transition(ctx, enums.CheckoutStateIdle)
	return nil
}

func outcomeOf(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return string(pkgerrors.CodeInternal)
}
