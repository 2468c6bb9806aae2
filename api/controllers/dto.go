package controllers

import (
	"time"

	"github.com/angelmondragon/bakehouse-backend/internal/cart"
	"github.com/angelmondragon/bakehouse-backend/internal/orders"
	"github.com/angelmondragon/bakehouse-backend/internal/pricing"
	"github.com/angelmondragon/bakehouse-backend/internal/promotions"
	"github.com/angelmondragon/bakehouse-backend/internal/shipping"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

type lineItemResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Image     string `json:"image,omitempty"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type totalsResponse struct {
	Subtotal     string `json:"subtotal"`
	Discount     string `json:"discount"`
	ShippingCost string `json:"shipping_cost"`
	GiftWrapFee  string `json:"gift_wrap_fee"`
	Tax          string `json:"tax"`
	Total        string `json:"total"`
}

type promotionResponse struct {
	Code        string              `json:"code"`
	Kind        enums.PromotionKind `json:"kind"`
	Value       string              `json:"value"`
	Description string              `json:"description"`
}

type shippingOptionResponse struct {
	ID             enums.ShippingOptionID `json:"id"`
	Label          string                 `json:"label"`
	Price          string                 `json:"price"`
	ETADescription string                 `json:"eta_description"`
}

type cartResponse struct {
	Items           []lineItemResponse      `json:"items"`
	SavedForLater   []lineItemResponse      `json:"saved_for_later"`
	ItemCount       int                     `json:"item_count"`
	Promotion       *promotionResponse      `json:"promotion,omitempty"`
	Notes           string                  `json:"notes"`
	GiftOptions     cart.GiftOptions        `json:"gift_options"`
	Shipping        *shippingOptionResponse `json:"shipping,omitempty"`
	LastInteraction *time.Time              `json:"last_interaction,omitempty"`
	Totals          totalsResponse          `json:"totals"`
	Events          []cart.Event            `json:"events"`
}

type orderResponse struct {
	OrderID     string                 `json:"order_id"`
	Items       []lineItemResponse     `json:"items"`
	Totals      totalsResponse         `json:"totals"`
	Promotion   *promotionResponse     `json:"promotion,omitempty"`
	Shipping    shippingOptionResponse `json:"shipping"`
	Address     orders.Address         `json:"address"`
	Contact     orders.Contact         `json:"contact"`
	Payment     orders.Payment         `json:"payment"`
	GiftOptions cart.GiftOptions       `json:"gift_options"`
	Notes       string                 `json:"notes,omitempty"`
	PlacedAt    time.Time              `json:"placed_at"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func newLineItems(items []cart.LineItem) []lineItemResponse {
	out := make([]lineItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, lineItemResponse{
			ID:        item.ID,
			Name:      item.Name,
			Price:     money(item.Price),
			Image:     item.Image,
			Quantity:  item.Quantity,
			LineTotal: money(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))),
		})
	}
	return out
}

func newTotals(b pricing.Breakdown) totalsResponse {
	b = b.Rounded()
	return totalsResponse{
		Subtotal:     money(b.Subtotal),
		Discount:     money(b.Discount),
		ShippingCost: money(b.ShippingCost),
		GiftWrapFee:  money(b.GiftWrapFee),
		Tax:          money(b.Tax),
		Total:        money(b.Total),
	}
}

func newPromotion(p *promotions.Promotion) *promotionResponse {
	if p == nil {
		return nil
	}
	return &promotionResponse{Code: p.Code, Kind: p.Kind, Value: p.Value.String(), Description: p.Description}
}

func newShippingOption(opt shipping.Option) shippingOptionResponse {
	return shippingOptionResponse{ID: opt.ID, Label: opt.Label, Price: money(opt.Price), ETADescription: opt.ETADescription}
}

func newShippingOptions(opts []shipping.Option) []shippingOptionResponse {
	out := make([]shippingOptionResponse, 0, len(opts))
	for _, opt := range opts {
		out = append(out, newShippingOption(opt))
	}
	return out
}

func newCartResponse(state cart.State, totals pricing.Breakdown, events []cart.Event) cartResponse {
	resp := cartResponse{
		Items:         newLineItems(state.Items),
		SavedForLater: newLineItems(state.Saved),
		Promotion:     newPromotion(state.Promotion),
		Notes:         state.Notes,
		GiftOptions:   state.Gift,
		Totals:        newTotals(totals),
		Events:        events,
	}
	for _, item := range state.Items {
		resp.ItemCount += item.Quantity
	}
	if state.Shipping != nil {
		opt := newShippingOption(*state.Shipping)
		resp.Shipping = &opt
	}
	if !state.LastInteraction.IsZero() {
		last := state.LastInteraction
		resp.LastInteraction = &last
	}
	if resp.Events == nil {
		resp.Events = []cart.Event{}
	}
	return resp
}

func newOrderResponse(o orders.Order) orderResponse {
	return orderResponse{
		OrderID:     o.ID,
		Items:       newLineItems(o.Items),
		Totals:      newTotals(o.Breakdown),
		Promotion:   newPromotion(o.Promotion),
		Shipping:    newShippingOption(o.Shipping.Option),
		Address:     o.Shipping.Address,
		Contact:     o.Contact,
		Payment:     o.Payment,
		GiftOptions: o.Gift,
		Notes:       o.Notes,
		PlacedAt:    o.PlacedAt,
	}
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func newOrderResponses(list []orders.Order) []orderResponse {
	out := make([]orderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, newOrderResponse(o))
	}
	return out
}
