package cart

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/bakehouse-backend/internal/pricing"
	"github.com/angelmondragon/bakehouse-backend/internal/promotions"
	"github.com/angelmondragon/bakehouse-backend/internal/shipping"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	MaxGiftMessageLength = 250
	MaxNotesLength       = 500
)

// LineItem is a product in the cart or the saved-for-later list.
type LineItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Quantity int             `json:"quantity"`
}

// NewLineItem validates product data entering the cart and returns a line with quantity 1.
func NewLineItem(id, name string, price decimal.Decimal, image string) (LineItem, error) {
	item := LineItem{
		ID:       strings.TrimSpace(id),
		Name:     strings.TrimSpace(name),
		Price:    price,
		Image:    strings.TrimSpace(image),
		Quantity: 1,
	}
	if err := item.validate(); err != nil {
		return LineItem{}, err
	}
	return item, nil
}

func (l LineItem) validate() error {
	fields := map[string]string{}
	if l.ID == "" {
		fields["id"] = "is required"
	}
	if l.Name == "" {
		fields["name"] = "is required"
	}
	if l.Price.IsNegative() {
		fields["price"] = "must be non-negative"
	}
	if l.Quantity < 1 {
		fields["quantity"] = "must be at least 1"
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid line item").WithDetails(fields)
	}
	return nil
}

// GiftOptions are the shopper's gift preferences for the order.
type GiftOptions struct {
	IsGift  bool   `json:"is_gift"`
	Wrap    bool   `json:"wrap"`
	Message string `json:"message"`
}

// Validate enforces the gift message limit.
func (g GiftOptions) Validate() error {
	if utf8.RuneCountInString(g.Message) > MaxGiftMessageLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "gift message too long").
			WithDetails(map[string]string{"message": fmt.Sprintf("must be at most %d characters", MaxGiftMessageLength)})
	}
	return nil
}

// WantsWrap reports whether the gift wrap fee applies.
func (g GiftOptions) WantsWrap() bool {
	return g.IsGift && g.Wrap
}

// Event is an advisory or intent reported by a cart operation.
type Event struct {
	Type      enums.CartEventType `json:"type"`
	ItemID    string              `json:"item_id"`
	Requested int                 `json:"requested,omitempty"`
	Quantity  int                 `json:"quantity,omitempty"`
	Stock     int                 `json:"stock"`
}

// Outcome is what every mutating operation hands back.
type Outcome struct {
	Events []Event           `json:"events"`
	Totals pricing.Breakdown `json:"totals"`
}

// State is a point-in-time copy of the cart.
type State struct {
	Items           []LineItem            `json:"items"`
	Saved           []LineItem            `json:"saved_for_later"`
	Promotion       *promotions.Promotion `json:"promotion,omitempty"`
	Notes           string                `json:"notes"`
	Gift            GiftOptions           `json:"gift_options"`
	Shipping        *shipping.Option      `json:"shipping,omitempty"`
	LastInteraction time.Time             `json:"last_interaction"`
}

// IsEmpty reports whether there are no active items.
func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// Clone deep-copies the state so later cart mutations cannot leak into it.
func (s State) Clone() State {
	out := s
	out.Items = cloneItems(s.Items)
	out.Saved = cloneItems(s.Saved)
	if s.Promotion != nil {
		promo := *s.Promotion
		out.Promotion = &promo
	}
	if s.Shipping != nil {
		opt := *s.Shipping
		out.Shipping = &opt
	}
	return out
}

// PricingInput assembles the pricing engine input for this state.
func (s State) PricingInput(policy pricing.Policy) pricing.Input {
	lines := make([]pricing.Line, 0, len(s.Items))
	for _, item := range s.Items {
		lines = append(lines, pricing.Line{Price: item.Price, Quantity: item.Quantity})
	}
	return pricing.Input{
		Lines:     lines,
		Promotion: s.Promotion,
		Shipping:  s.Shipping,
		GiftWrap:  s.Gift.WantsWrap(),
		Policy:    policy,
	}
}

func cloneItems(items []LineItem) []LineItem {
	if items == nil {
		return []LineItem{}
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

func indexOf(items []LineItem, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func without(items []LineItem, idx int) []LineItem {
	out := make([]LineItem, 0, len(items)-1)
	out = append(out, items[:idx]...)
	return append(out, items[idx+1:]...)
}
