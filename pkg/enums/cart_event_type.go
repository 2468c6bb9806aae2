package enums

import "fmt"

// CartEventType classifies the notices a cart operation reports to the caller.
type CartEventType string

const (
	CartEventStockLimited   CartEventType = "stock_limited"
	CartEventOutOfStock     CartEventType = "out_of_stock"
	CartEventLimitedStock   CartEventType = "limited_stock"
	CartEventLowStock       CartEventType = "low_stock"
	CartEventConfirmRemoval CartEventType = "confirm_removal"
)

var validCartEventTypes = []CartEventType{
	CartEventStockLimited,
	CartEventOutOfStock,
	CartEventLimitedStock,
	CartEventLowStock,
	CartEventConfirmRemoval,
}

// String implements fmt.Stringer.
func (c CartEventType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CartEventType.
func (c CartEventType) IsValid() bool {
	for _, candidate := range validCartEventTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCartEventType converts raw input into a CartEventType.
func ParseCartEventType(value string) (CartEventType, error) {
	for _, candidate := range validCartEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart event type %q", value)
}
