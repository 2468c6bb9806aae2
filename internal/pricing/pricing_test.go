package pricing

import (
	"testing"

	"github.com/angelmondragon/bakehouse-backend/internal/promotions"
	"github.com/angelmondragon/bakehouse-backend/internal/shipping"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testPolicy() Policy {
	return Policy{
		FreeShippingThreshold: d("50"),
		TaxRate:               d("0.08"),
		GiftWrapFee:           d("4.99"),
		StandardShipping:      d("5.99"),
	}
}

func pastryLines() []Line {
	return []Line{
		{Price: d("3.75"), Quantity: 2},
		{Price: d("3.99"), Quantity: 1},
	}
}

func assertAmount(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Fatalf("%s: expected %s got %s", field, want, got)
	}
}

func TestPriceStandardExample(t *testing.T) {
	b := Price(Input{Lines: pastryLines(), Policy: testPolicy()}).Rounded()

	assertAmount(t, "subtotal", b.Subtotal, "11.49")
	assertAmount(t, "discount", b.Discount, "0")
	assertAmount(t, "shipping", b.ShippingCost, "5.99")
	assertAmount(t, "tax", b.Tax, "0.92")
	assertAmount(t, "total", b.Total, "18.40")
}

func TestPriceFixedAmountExample(t *testing.T) {
	promo := &promotions.Promotion{Code: "SAVE5", Kind: enums.PromotionFixedAmount, Value: d("5")}
	b := Price(Input{Lines: pastryLines(), Promotion: promo, Policy: testPolicy()}).Rounded()

	assertAmount(t, "discount", b.Discount, "5.00")
	assertAmount(t, "tax", b.Tax, "0.52")
	assertAmount(t, "total", b.Total, "13.00")
}

func TestRoundedComponentsSumToTotal(t *testing.T) {
	promo := &promotions.Promotion{Code: "SWEET10", Kind: enums.PromotionPercentage, Value: d("10")}
	b := Price(Input{Lines: []Line{{Price: d("3.75"), Quantity: 1}}, Promotion: promo, Policy: testPolicy()}).Rounded()

	assertAmount(t, "discount", b.Discount, "0.38")
	assertAmount(t, "tax", b.Tax, "0.27")
	sum := b.Subtotal.Sub(b.Discount).Add(b.ShippingCost).Add(b.GiftWrapFee).Add(b.Tax)
	if !b.Total.Equal(sum) {
		t.Fatalf("rounded total %s does not match component sum %s", b.Total, sum)
	}
	assertAmount(t, "total", b.Total, "9.63")
}

func TestPriceKeepsIntermediatePrecision(t *testing.T) {
	b := Price(Input{Lines: pastryLines(), Policy: testPolicy()})
	assertAmount(t, "tax", b.Tax, "0.9192")
	assertAmount(t, "total", b.Total, "18.3992")
}

func TestThresholdOverridesExpress(t *testing.T) {
	express := &shipping.Option{ID: enums.ShippingExpress, Price: d("12.99")}
	lines := []Line{{Price: d("25"), Quantity: 2}}

	b := Price(Input{Lines: lines, Shipping: express, Policy: testPolicy()})
	assertAmount(t, "shipping", b.ShippingCost, "0")

	below := Price(Input{Lines: []Line{{Price: d("49.99"), Quantity: 1}}, Shipping: express, Policy: testPolicy()})
	assertAmount(t, "shipping below threshold", below.ShippingCost, "12.99")
}

func TestFreeShippingPromotion(t *testing.T) {
	promo := &promotions.Promotion{Code: "FREESHIP", Kind: enums.PromotionFreeShipping}
	b := Price(Input{Lines: pastryLines(), Promotion: promo, Policy: testPolicy()})
	assertAmount(t, "shipping", b.ShippingCost, "0")
	assertAmount(t, "discount", b.Discount, "0")
}

func TestGiftWrapIsNotTaxed(t *testing.T) {
	b := Price(Input{Lines: pastryLines(), GiftWrap: true, Policy: testPolicy()})
	assertAmount(t, "gift wrap", b.GiftWrapFee, "4.99")
	assertAmount(t, "tax", b.Tax, "0.9192")
	assertAmount(t, "total", b.Total, "23.3892")
}

func TestPercentageDiscount(t *testing.T) {
	promo := &promotions.Promotion{Code: "SWEET10", Kind: enums.PromotionPercentage, Value: d("10")}
	b := Price(Input{Lines: pastryLines(), Promotion: promo, Policy: testPolicy()})
	assertAmount(t, "discount", b.Discount, "1.149")
}

func TestDiscountNeverExceedsSubtotal(t *testing.T) {
	promos := []*promotions.Promotion{
		{Code: "HUGE", Kind: enums.PromotionFixedAmount, Value: d("1000")},
		{Code: "ALL", Kind: enums.PromotionPercentage, Value: d("100")},
	}
	for _, promo := range promos {
		in := Input{Lines: pastryLines(), Promotion: promo, GiftWrap: true, Policy: testPolicy()}
		first := Price(in)
		second := Price(in)
		if !first.Total.Equal(second.Total) || !first.Discount.Equal(second.Discount) {
			t.Fatalf("price is not deterministic for %s", promo.Code)
		}
		if first.Discount.GreaterThan(first.Subtotal) {
			t.Fatalf("discount %s exceeds subtotal %s", first.Discount, first.Subtotal)
		}
		if first.Total.IsNegative() {
			t.Fatalf("negative total %s", first.Total)
		}
		assertAmount(t, "tax "+promo.Code, first.Tax, "0")
	}
}

func TestEmptyCart(t *testing.T) {
	b := Price(Input{Policy: testPolicy()})
	assertAmount(t, "subtotal", b.Subtotal, "0")
	assertAmount(t, "total", b.Total, "5.99")
}

func TestPolicyValidate(t *testing.T) {
	if err := testPolicy().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := testPolicy()
	bad.TaxRate = d("1.5")
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for tax rate above 1")
	}
	bad = testPolicy()
	bad.GiftWrapFee = d("-1")
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for negative fee")
	}
}
