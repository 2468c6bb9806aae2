package pricing

import (
	"fmt"

	"github.com/angelmondragon/bakehouse-backend/internal/promotions"
	"github.com/angelmondragon/bakehouse-backend/internal/shipping"
	"github.com/angelmondragon/bakehouse-backend/pkg/config"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

const presentationPlaces = 2

var hundred = decimal.NewFromInt(100)

// Line is the priced part of a cart line.
type Line struct {
	Price    decimal.Decimal
	Quantity int
}

// Policy holds the store-wide pricing constants.
type Policy struct {
	// FreeShippingThreshold zeroes shipping once the subtotal reaches it.
	// Zero disables the threshold.
	FreeShippingThreshold decimal.Decimal
	TaxRate               decimal.Decimal
	GiftWrapFee           decimal.Decimal
	StandardShipping      decimal.Decimal
}

// PolicyFromConfig maps the pricing config section onto a Policy.
func PolicyFromConfig(cfg config.PricingConfig) Policy {
	return Policy{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		TaxRate:               cfg.TaxRate,
		GiftWrapFee:           cfg.GiftWrapFee,
		StandardShipping:      cfg.StandardShipping,
	}
}

// Validate rejects negative amounts and tax rates above 1.
func (p Policy) Validate() error {
	if p.FreeShippingThreshold.IsNegative() || p.GiftWrapFee.IsNegative() || p.StandardShipping.IsNegative() {
		return fmt.Errorf("pricing policy amounts must be non-negative")
	}
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate must be between 0 and 1")
	}
	return nil
}

// Input is everything a price computation depends on.
type Input struct {
	Lines     []Line
	Promotion *promotions.Promotion
	// Shipping is the selected option; nil means the policy's standard rate.
	Shipping *shipping.Option
	GiftWrap bool
	Policy   Policy
}

// Breakdown is the itemized price. Values are unrounded; use Rounded for display.
type Breakdown struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	GiftWrapFee  decimal.Decimal `json:"gift_wrap_fee"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
}

// Rounded returns the breakdown with every amount rounded to cents. Total is
// recomputed from the rounded components so the itemized lines always add up.
func (b Breakdown) Rounded() Breakdown {
	out := Breakdown{
		Subtotal:     b.Subtotal.Round(presentationPlaces),
		Discount:     b.Discount.Round(presentationPlaces),
		ShippingCost: b.ShippingCost.Round(presentationPlaces),
		GiftWrapFee:  b.GiftWrapFee.Round(presentationPlaces),
		Tax:          b.Tax.Round(presentationPlaces),
	}
	out.Total = out.Subtotal.Sub(out.Discount).Add(out.ShippingCost).Add(out.GiftWrapFee).Add(out.Tax)
	return out
}

// Price computes the breakdown. Shipping and gift wrap are outside the tax base.
func Price(in Input) Breakdown {
	subtotal := decimal.Zero
	for _, line := range in.Lines {
		subtotal = subtotal.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	discount := discountFor(subtotal, in.Promotion)
	shippingCost := shippingFor(subtotal, in)

	giftWrap := decimal.Zero
	if in.GiftWrap {
		giftWrap = in.Policy.GiftWrapFee
	}

	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(in.Policy.TaxRate)

	return Breakdown{
		Subtotal:     subtotal,
		Discount:     discount,
		ShippingCost: shippingCost,
		GiftWrapFee:  giftWrap,
		Tax:          tax,
		Total:        taxable.Add(shippingCost).Add(giftWrap).Add(tax),
	}
}

func discountFor(subtotal decimal.Decimal, promo *promotions.Promotion) decimal.Decimal {
	if promo == nil {
		return decimal.Zero
	}
	switch promo.Kind {
	case enums.PromotionPercentage:
		return decimal.Min(subtotal.Mul(promo.Value).Div(hundred), subtotal)
	case enums.PromotionFixedAmount:
		return decimal.Max(decimal.Min(promo.Value, subtotal), decimal.Zero)
	default:
		return decimal.Zero
	}
}

func shippingFor(subtotal decimal.Decimal, in Input) decimal.Decimal {
	if in.Promotion != nil && in.Promotion.Kind == enums.PromotionFreeShipping {
		return decimal.Zero
	}
	threshold := in.Policy.FreeShippingThreshold
	if threshold.IsPositive() && subtotal.GreaterThanOrEqual(threshold) {
		return decimal.Zero
	}
	if in.Shipping != nil {
		return in.Shipping.Price
	}
	return in.Policy.StandardShipping
}
