package orders

import (
	"time"

	"github.com/angelmondragon/bakehouse-backend/internal/cart"
	"github.com/angelmondragon/bakehouse-backend/internal/pricing"
	"github.com/angelmondragon/bakehouse-backend/internal/promotions"
	"github.com/angelmondragon/bakehouse-backend/internal/shipping"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
)

// Contact is who the bakery reaches about the order.
type Contact struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Address is a US delivery address.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// ShippingSelection is the option chosen and where it goes.
type ShippingSelection struct {
	Option  shipping.Option `json:"option"`
	Address Address         `json:"address"`
}

// Payment describes how the order was paid without any card data.
type Payment struct {
	Method     enums.PaymentMethod `json:"method"`
	Descriptor string              `json:"descriptor"`
}

// Order is an immutable record of a completed purchase.
type Order struct {
	ID        string                `json:"order_id"`
	Items     []cart.LineItem       `json:"items"`
	Breakdown pricing.Breakdown     `json:"breakdown"`
	Promotion *promotions.Promotion `json:"promotion,omitempty"`
	Shipping  ShippingSelection     `json:"shipping"`
	Contact   Contact               `json:"contact"`
	Payment   Payment               `json:"payment"`
	Gift      cart.GiftOptions      `json:"gift_options"`
	Notes     string                `json:"notes,omitempty"`
	PlacedAt  time.Time             `json:"placed_at"`
}

// Clone returns a copy that shares no slices or pointers with o.
func (o Order) Clone() Order {
	out := o
	out.Items = make([]cart.LineItem, len(o.Items))
	copy(out.Items, o.Items)
	if o.Promotion != nil {
		promo := *o.Promotion
		out.Promotion = &promo
	}
	return out
}
