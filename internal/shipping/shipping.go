package shipping

import (
	"regexp"
	"strings"

	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Option is one delivery method offered at checkout.
type Option struct {
	ID             enums.ShippingOptionID `json:"id"`
	Label          string                 `json:"label"`
	Price          decimal.Decimal        `json:"price"`
	ETADescription string                 `json:"eta_description"`
}

// Rates carries the configured prices for each option.
type Rates struct {
	Standard      decimal.Decimal
	Express       decimal.Decimal
	LocalDelivery decimal.Decimal
}

var zipRe = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// Catalog produces the options available for a destination.
type Catalog struct {
	rates Rates
	// localPrefixes are ZIP3 prefixes served by the bakery's own van.
	localPrefixes map[string]struct{}
}

// NewCatalog builds a catalog; postal codes starting with any of
// localPrefixes also get local delivery.
func NewCatalog(rates Rates, localPrefixes ...string) *Catalog {
	prefixes := make(map[string]struct{}, len(localPrefixes))
	for _, p := range localPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			prefixes[p] = struct{}{}
		}
	}
	return &Catalog{rates: rates, localPrefixes: prefixes}
}

// Standard returns the default option.
func (c *Catalog) Standard() Option {
	return Option{
		ID:             enums.ShippingStandard,
		Label:          "Standard Shipping",
		Price:          c.rates.Standard,
		ETADescription: "3-5 business days",
	}
}

func (c *Catalog) express() Option {
	return Option{
		ID:             enums.ShippingExpress,
		Label:          "Express Shipping",
		Price:          c.rates.Express,
		ETADescription: "1-2 business days",
	}
}

func (c *Catalog) localDelivery() Option {
	return Option{
		ID:             enums.ShippingLocalDelivery,
		Label:          "Local Delivery",
		Price:          c.rates.LocalDelivery,
		ETADescription: "Same day before 6pm",
	}
}

// OptionsFor lists the options for postalCode. An empty code yields the
// nationwide options; a malformed one is a validation error.
func (c *Catalog) OptionsFor(postalCode string) ([]Option, error) {
	postalCode = strings.TrimSpace(postalCode)
	options := []Option{c.Standard(), c.express()}
	if postalCode == "" {
		return options, nil
	}
	if !zipRe.MatchString(postalCode) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid postal code").
			WithDetails(map[string]string{"postal_code": "must be a 5 digit ZIP or ZIP+4"})
	}
	if _, ok := c.localPrefixes[postalCode[:3]]; ok {
		options = append(options, c.localDelivery())
	}
	return options, nil
}

// Find returns the option with id when it is offered for postalCode.
func (c *Catalog) Find(id enums.ShippingOptionID, postalCode string) (Option, error) {
	options, err := c.OptionsFor(postalCode)
	if err != nil {
		return Option{}, err
	}
	for _, opt := range options {
		if opt.ID == id {
			return opt, nil
		}
	}
	return Option{}, pkgerrors.New(pkgerrors.CodeValidation, "shipping option not available").
		WithDetails(map[string]string{"shipping_option": string(id)})
}
