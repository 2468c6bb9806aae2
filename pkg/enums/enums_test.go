package enums

import "testing"

func TestParseCartEventType(t *testing.T) {
	got, err := ParseCartEventType("confirm_removal")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != CartEventConfirmRemoval {
		t.Fatalf("expected confirm_removal, got %s", got)
	}
	if _, err := ParseCartEventType("sold_out"); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestCheckoutStateIsValid(t *testing.T) {
	for _, state := range []CheckoutState{CheckoutStateIdle, CheckoutStateFormValidation, CheckoutStateSubmitting, CheckoutStateCompleted} {
		if !state.IsValid() {
			t.Fatalf("expected %s to be valid", state)
		}
	}
	if CheckoutState("paid").IsValid() {
		t.Fatal("expected paid to be invalid")
	}
}

func TestParsePaymentMethod(t *testing.T) {
	if _, err := ParsePaymentMethod("bitcoin"); err == nil {
		t.Fatal("expected error for unsupported payment method")
	}
	got, err := ParsePaymentMethod("cash_on_delivery")
	if err != nil || got != PaymentMethodCashOnDelivery {
		t.Fatalf("unexpected parse result %q %v", got, err)
	}
}

func TestPromotionKindString(t *testing.T) {
	if PromotionFixedAmount.String() != "fixed_amount" {
		t.Fatalf("unexpected string %q", PromotionFixedAmount.String())
	}
	if ShippingExpress.String() != "express" || !ShippingLocalDelivery.IsValid() {
		t.Fatal("unexpected shipping option enum behaviour")
	}
}
