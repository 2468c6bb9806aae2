package promotions

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Promotion is a named discount descriptor.
type Promotion struct {
	Code        string              `json:"code"`
	Kind        enums.PromotionKind `json:"kind"`
	Value       decimal.Decimal     `json:"value"`
	Description string              `json:"description"`
}

// Validate enforces the value range for the promotion kind.
func (p Promotion) Validate() error {
	if Normalize(p.Code) == "" {
		return fmt.Errorf("promotion code is required")
	}
	switch p.Kind {
	case enums.PromotionPercentage:
		if p.Value.IsNegative() || p.Value.GreaterThan(hundred) {
			return fmt.Errorf("percentage promotion %s must be between 0 and 100", p.Code)
		}
	case enums.PromotionFixedAmount:
		if p.Value.IsNegative() {
			return fmt.Errorf("fixed promotion %s must be non-negative", p.Code)
		}
	case enums.PromotionFreeShipping:
	default:
		return fmt.Errorf("invalid promotion kind %q", p.Kind)
	}
	return nil
}

// Normalize trims and upper-cases a shopper-entered code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Resolver looks promotion codes up.
type Resolver interface {
	Resolve(code string) (Promotion, error)
}

// Table is a static, case-insensitive promotion table.
type Table struct {
	byCode map[string]Promotion
}

// NewTable indexes promos by normalized code.
func NewTable(promos ...Promotion) (*Table, error) {
	byCode := make(map[string]Promotion, len(promos))
	for _, promo := range promos {
		if err := promo.Validate(); err != nil {
			return nil, err
		}
		promo.Code = Normalize(promo.Code)
		if _, dup := byCode[promo.Code]; dup {
			return nil, fmt.Errorf("duplicate promotion code %s", promo.Code)
		}
		byCode[promo.Code] = promo
	}
	return &Table{byCode: byCode}, nil
}

// Resolve returns the promotion for code or PROMOTION_NOT_FOUND.
func (t *Table) Resolve(code string) (Promotion, error) {
	normalized := Normalize(code)
	promo, ok := t.byCode[normalized]
	if !ok {
		return Promotion{}, pkgerrors.New(pkgerrors.CodePromotionNotFound, "promotion code not recognised").
			WithDetails(map[string]any{"code": normalized})
	}
	return promo, nil
}

// Default is the bakery's standing promotion table.
func Default() *Table {
	table, err := NewTable(
		Promotion{Code: "SWEET10", Kind: enums.PromotionPercentage, Value: decimal.NewFromInt(10), Description: "10% off your order"},
		Promotion{Code: "BAKERY20", Kind: enums.PromotionPercentage, Value: decimal.NewFromInt(20), Description: "20% off your order"},
		Promotion{Code: "SAVE5", Kind: enums.PromotionFixedAmount, Value: decimal.NewFromInt(5), Description: "$5 off your order"},
		Promotion{Code: "FREESHIP", Kind: enums.PromotionFreeShipping, Value: decimal.Zero, Description: "Free shipping"},
	)
	if err != nil {
		panic(err)
	}
	return table
}
