package enums

import "fmt"

// CheckoutState is the position of a checkout in its submission lifecycle.
type CheckoutState string

const (
	CheckoutStateIdle           CheckoutState = "idle"
	CheckoutStateFormValidation CheckoutState = "form_validation"
	CheckoutStateSubmitting     CheckoutState = "submitting"
	CheckoutStateCompleted      CheckoutState = "completed"
)

var validCheckoutStates = []CheckoutState{
	CheckoutStateIdle,
	CheckoutStateFormValidation,
	CheckoutStateSubmitting,
	CheckoutStateCompleted,
}

// String implements fmt.Stringer.
func (c CheckoutState) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutState.
func (c CheckoutState) IsValid() bool {
	for _, candidate := range validCheckoutStates {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCheckoutState converts raw input into a CheckoutState.
func ParseCheckoutState(value string) (CheckoutState, error) {
	for _, candidate := range validCheckoutStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout state %q", value)
}
