package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/bakehouse-backend/internal/cart"
	"github.com/angelmondragon/bakehouse-backend/internal/inventory"
	"github.com/angelmondragon/bakehouse-backend/internal/orders"
	"github.com/angelmondragon/bakehouse-backend/internal/pricing"
	"github.com/angelmondragon/bakehouse-backend/internal/promotions"
	"github.com/angelmondragon/bakehouse-backend/internal/shipping"
	"github.com/angelmondragon/bakehouse-backend/internal/storage"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

var (
	testKeys = storage.Keys{Namespace: "test", Session: "s1"}
	testNow  = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
)

type switchableStore struct {
	storage.Store
	mu   sync.Mutex
	fail bool
}

func (s *switchableStore) setFail(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = v
}

func (s *switchableStore) Apply(ctx context.Context, ops ...storage.Op) error {
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, errors.New("disk full"), "write batch")
	}
	return s.Store.Apply(ctx, ops...)
}

type countingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
	totals   []float64
}

func (c *countingObserver) ObserveCheckout(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = map[string]int{}
	}
	c.outcomes[outcome]++
}

func (c *countingObserver) ObserveOrderTotal(total float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totals = append(c.totals, total)
}

type fixture struct {
	store    *switchableStore
	cart     *cart.Cart
	checkout *Orchestrator
	history  *orders.History
	observer *countingObserver
}

func newFixture(t *testing.T, delay time.Duration) *fixture {
	t.Helper()
	ctx := context.Background()
	store := &switchableStore{Store: storage.NewMemory(0, logger.Nop())}
	snap, err := inventory.NewSnapshot(inventory.Record{ItemID: "croissant", Stock: 10})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	c, err := cart.Load(ctx, cart.Deps{
		Store:      store,
		Keys:       testKeys,
		Inventory:  inventory.NewStatic(snap),
		Promotions: promotions.Default(),
		Policy: pricing.Policy{
			FreeShippingThreshold: decimal.NewFromInt(50),
			TaxRate:               decimal.RequireFromString("0.08"),
			GiftWrapFee:           decimal.RequireFromString("4.99"),
			StandardShipping:      decimal.RequireFromString("5.99"),
		},
		Logger: logger.Nop(),
		Clock:  func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	history, err := orders.NewHistory(store, testKeys)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	obs := &countingObserver{}
	o, err := New(Deps{
		Cart:    c,
		History: history,
		Shipping: shipping.NewCatalog(shipping.Rates{
			Standard:      decimal.RequireFromString("5.99"),
			Express:       decimal.RequireFromString("12.99"),
			LocalDelivery: decimal.RequireFromString("3.50"),
		}, "941"),
		IDs:             orders.NewIDGenerator("BKH", func() time.Time { return testNow }, nil),
		Keys:            testKeys,
		Logger:          logger.Nop(),
		Observer:        obs,
		Clock:           func() time.Time { return testNow },
		ProcessingDelay: delay,
	})
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}
	return &fixture{store: store, cart: c, checkout: o, history: history, observer: obs}
}

func (f *fixture) fill(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	croissant, _ := cart.NewLineItem("croissant", "Butter Croissant", decimal.RequireFromString("3.75"), "")
	baguette, _ := cart.NewLineItem("baguette", "Baguette", decimal.RequireFromString("3.99"), "")
	if _, err := f.cart.AddItem(ctx, croissant, 2); err != nil {
		t.Fatalf("add croissant: %v", err)
	}
	if _, err := f.cart.AddItem(ctx, baguette, 1); err != nil {
		t.Fatalf("add baguette: %v", err)
	}
}

func validForm() Form {
	return Form{
		FullName:      "Jamie Baker",
		Email:         "jamie@example.com",
		Phone:         "(415) 555-0123",
		AddressLine1:  "1 Market St",
		City:          "San Francisco",
		State:         "CA",
		PostalCode:    "94105",
		PaymentMethod: enums.PaymentMethodCard,
		CardNumber:    "4242 4242 4242 4242",
		CardExpiry:    "04/27",
		CardCVV:       "123",
	}
}

func detailsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details type %T", typed.Details())
	}
	return details
}

func TestValidateAcceptsGoodForm(t *testing.T) {
	f := newFixture(t, 0)
	if err := f.checkout.Validate(context.Background(), validForm()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.checkout.State() != enums.CheckoutStateFormValidation {
		t.Fatalf("expected form_validation, got %s", f.checkout.State())
	}
}

func TestValidateReportsFieldFailures(t *testing.T) {
	f := newFixture(t, 0)
	form := validForm()
	form.Email = "not-an-email"
	form.Phone = "555-0123"
	form.PostalCode = "9410"
	form.CardNumber = "4242 4242"
	form.CardExpiry = "02/26"
	form.CardCVV = "12"
	form.City = ""

	details := detailsOf(t, f.checkout.Validate(context.Background(), form))
	for _, field := range []string{"email", "phone", "postal_code", "card_number", "card_expiry", "card_cvv", "city"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("expected failure for %s, got %+v", field, details)
		}
	}
	if f.checkout.State() != enums.CheckoutStateIdle {
		t.Fatalf("expected idle after failed validation, got %s", f.checkout.State())
	}
}

func TestValidateFieldRules(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*Form)
		field string
		ok    bool
	}{
		{name: "dotted phone", edit: func(f *Form) { f.Phone = "415.555.0123" }, ok: true},
		{name: "bare phone", edit: func(f *Form) { f.Phone = "4155550123" }, ok: true},
		{name: "eleven digit phone", edit: func(f *Form) { f.Phone = "14155550123" }, field: "phone"},
		{name: "unclosed parenthesis phone", edit: func(f *Form) { f.Phone = "(415-555-0123" }, field: "phone"},
		{name: "unopened parenthesis phone", edit: func(f *Form) { f.Phone = "415)555-0123" }, field: "phone"},
		{name: "zip plus four", edit: func(f *Form) { f.PostalCode = "94105-1234" }, ok: true},
		{name: "thirteen digit card", edit: func(f *Form) { f.CardNumber = "4222222222222" }, ok: true},
		{name: "seventeen digit card", edit: func(f *Form) { f.CardNumber = "42424242424242424" }, field: "card_number"},
		{name: "current month expiry", edit: func(f *Form) { f.CardExpiry = "03/26" }, ok: true},
		{name: "month thirteen", edit: func(f *Form) { f.CardExpiry = "13/30" }, field: "card_expiry"},
		{name: "four digit cvv", edit: func(f *Form) { f.CardCVV = "1234" }, ok: true},
		{name: "missing cvv", edit: func(f *Form) { f.CardCVV = "" }, field: "card_cvv"},
		{name: "cash skips card checks", edit: func(f *Form) {
			f.PaymentMethod = enums.PaymentMethodCashOnDelivery
			f.CardNumber = "garbage"
			f.CardCVV = ""
		}, ok: true},
		{name: "unknown payment method", edit: func(f *Form) { f.PaymentMethod = "barter" }, field: "payment_method"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, 0)
			form := validForm()
			tc.edit(&form)
			err := f.checkout.Validate(context.Background(), form)
			if tc.ok {
				if err != nil {
					t.Fatalf("expected valid form, got %v", err)
				}
				return
			}
			if _, ok := detailsOf(t, err)[tc.field]; !ok {
				t.Fatalf("expected failure on %s, got %v", tc.field, err)
			}
		})
	}
}

func TestSubmitEmptyCartRejected(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.checkout.Submit(context.Background(), validForm())
	if !pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart) {
		t.Fatalf("expected EMPTY_CART, got %v", err)
	}
	list, _ := f.history.List(context.Background())
	if len(list) != 0 {
		t.Fatalf("expected no orders, got %d", len(list))
	}
}

func TestSubmitPlacesOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.fill(t)
	if _, err := f.cart.ApplyPromotion(ctx, "SAVE5"); err != nil {
		t.Fatalf("promo: %v", err)
	}
	if _, err := f.cart.SetNotes(ctx, "leave at the door"); err != nil {
		t.Fatalf("notes: %v", err)
	}

	order, err := f.checkout.Submit(ctx, validForm())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if f.checkout.State() != enums.CheckoutStateCompleted {
		t.Fatalf("expected completed, got %s", f.checkout.State())
	}
	if !order.Breakdown.Total.Equal(decimal.RequireFromString("13")) {
		t.Fatalf("expected total 13.00, got %s", order.Breakdown.Total)
	}
	b := order.Breakdown
	if sum := b.Subtotal.Sub(b.Discount).Add(b.ShippingCost).Add(b.GiftWrapFee).Add(b.Tax); !sum.Equal(b.Total) {
		t.Fatalf("stored breakdown does not add up: %s != %s", sum, b.Total)
	}
	if order.Payment.Descriptor != "Visa ending 4242" {
		t.Fatalf("unexpected payment descriptor %q", order.Payment.Descriptor)
	}
	if order.Shipping.Option.ID != enums.ShippingStandard || order.Shipping.Address.PostalCode != "94105" {
		t.Fatalf("unexpected shipping selection %+v", order.Shipping)
	}
	if order.Promotion == nil || order.Promotion.Code != "SAVE5" || order.Notes != "leave at the door" {
		t.Fatalf("unexpected order extras %+v", order)
	}
	if !order.PlacedAt.Equal(testNow) || len(order.ID) != len("BKH-")+12 {
		t.Fatalf("unexpected id/time %q %s", order.ID, order.PlacedAt)
	}

	state := f.cart.Snapshot()
	if !state.IsEmpty() || state.Promotion != nil {
		t.Fatalf("expected cart and promotion cleared, got %+v", state)
	}
	last, err := f.history.Last(ctx)
	if err != nil || last.ID != order.ID {
		t.Fatalf("expected last order %s, got %+v err=%v", order.ID, last, err)
	}
	if got, ok := f.checkout.LastOrder(); !ok || got.ID != order.ID {
		t.Fatal("expected orchestrator to remember the last order")
	}
	if f.observer.outcomes["completed"] != 1 || len(f.observer.totals) != 1 {
		t.Fatalf("unexpected observer state %+v", f.observer.outcomes)
	}
}

func TestSubmitDeepCopiesItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.fill(t)
	order, err := f.checkout.Submit(ctx, validForm())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	croissant, _ := cart.NewLineItem("croissant", "Butter Croissant", decimal.RequireFromString("3.75"), "")
	if _, err := f.cart.AddItem(ctx, croissant, 5); err != nil {
		t.Fatalf("add after order: %v", err)
	}
	stored, err := f.history.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(stored.Items) != 2 || stored.Items[0].Quantity != 2 || order.Items[0].Quantity != 2 {
		t.Fatalf("placed order changed after cart mutation: %+v", stored.Items)
	}
}

func TestSubmitStorageFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.fill(t)
	f.store.setFail(true)

	_, err := f.checkout.Submit(ctx, validForm())
	if !pkgerrors.HasCode(err, pkgerrors.CodeStorage) {
		t.Fatalf("expected STORAGE_ERROR, got %v", err)
	}
	if f.checkout.State() != enums.CheckoutStateFormValidation {
		t.Fatalf("expected form_validation after failure, got %s", f.checkout.State())
	}
	if f.cart.Snapshot().IsEmpty() {
		t.Fatal("cart must survive a failed submit")
	}
	list, _ := f.history.List(ctx)
	if len(list) != 0 {
		t.Fatal("no order may be recorded on failure")
	}

	f.store.setFail(false)
	if _, err := f.checkout.Submit(ctx, validForm()); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestSubmitInvalidFormReturnsToIdle(t *testing.T) {
	f := newFixture(t, 0)
	f.fill(t)
	form := validForm()
	form.Email = ""
	_, err := f.checkout.Submit(context.Background(), form)
	if _, ok := detailsOf(t, err)["email"]; !ok {
		t.Fatalf("expected email failure, got %v", err)
	}
	if f.checkout.State() != enums.CheckoutStateIdle {
		t.Fatalf("expected idle, got %s", f.checkout.State())
	}
}

func TestConcurrentSubmitYieldsOneOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50*time.Millisecond)
	f.fill(t)

	const callers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	start := make(chan struct{})
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.checkout.Submit(ctx, validForm())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case pkgerrors.HasCode(err, pkgerrors.CodeDuplicateSubmission), pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if succeeded != 1 || rejected != callers-1 {
		t.Fatalf("expected exactly one order, got %d succeeded %d rejected", succeeded, rejected)
	}
	list, _ := f.history.List(ctx)
	if len(list) != 1 {
		t.Fatalf("expected one stored order, got %d", len(list))
	}
}

func TestSubmitHonorsCancellation(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.fill(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.checkout.Submit(ctx, validForm())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if f.cart.Snapshot().IsEmpty() {
		t.Fatal("cart must survive a cancelled submit")
	}
}

func TestShippingSelection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.fill(t)

	options, err := f.checkout.ShippingOptions("94105")
	if err != nil || len(options) != 3 {
		t.Fatalf("expected three options for 941xx, got %+v err=%v", options, err)
	}
	out, err := f.checkout.SelectShipping(ctx, enums.ShippingExpress, "94105")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !out.Totals.ShippingCost.Equal(decimal.RequireFromString("12.99")) {
		t.Fatalf("expected express pricing, got %s", out.Totals.ShippingCost)
	}

	if _, err := f.checkout.SelectShipping(ctx, enums.ShippingLocalDelivery, "94105"); err != nil {
		t.Fatalf("select local: %v", err)
	}
	form := validForm()
	form.PostalCode = "10001"
	if _, ok := detailsOf(t, f.checkout.Validate(ctx, form))["shipping_option"]; !ok {
		t.Fatal("expected local delivery to fail outside the delivery area")
	}
}

func TestResetAfterCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.fill(t)
	if _, err := f.checkout.Submit(ctx, validForm()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := f.checkout.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if f.checkout.State() != enums.CheckoutStateIdle {
		t.Fatalf("expected idle, got %s", f.checkout.State())
	}
}

func TestPaymentDescriptors(t *testing.T) {
	cases := map[string]Form{
		"Mastercard ending 4444": {PaymentMethod: enums.PaymentMethodCard, CardNumber: "5555 5555 5555 4444"},
		"Amex ending 0005":       {PaymentMethod: enums.PaymentMethodCard, CardNumber: "3782 822463 10005"},
		"PayPal":                 {PaymentMethod: enums.PaymentMethodPaypal},
		"Cash on delivery":       {PaymentMethod: enums.PaymentMethodCashOnDelivery},
	}
	for want, form := range cases {
		if got := form.normalized().payment().Descriptor; got != want {
			t.Fatalf("expected %q got %q", want, got)
		}
	}
}
