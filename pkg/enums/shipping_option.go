package enums

import "fmt"

// ShippingOptionID identifies a delivery option offered at checkout.
type ShippingOptionID string

const (
	ShippingStandard      ShippingOptionID = "standard"
	ShippingExpress       ShippingOptionID = "express"
	ShippingLocalDelivery ShippingOptionID = "local_delivery"
)

var validShippingOptionIDs = []ShippingOptionID{
	ShippingStandard,
	ShippingExpress,
	ShippingLocalDelivery,
}

// String implements fmt.Stringer.
func (s ShippingOptionID) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShippingOptionID.
func (s ShippingOptionID) IsValid() bool {
	for _, candidate := range validShippingOptionIDs {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShippingOptionID converts raw input into a ShippingOptionID.
func ParseShippingOptionID(value string) (ShippingOptionID, error) {
	for _, candidate := range validShippingOptionIDs {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping option %q", value)
}
