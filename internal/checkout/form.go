package checkout

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/bakehouse-backend/internal/orders"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	"github.com/go-playground/validator/v10"
)

// Form is the shipping and payment input collected at checkout.
type Form struct {
	FullName      string              `json:"full_name" validate:"required"`
	Email         string              `json:"email" validate:"required,email"`
	Phone         string              `json:"phone" validate:"required,phone"`
	AddressLine1  string              `json:"address_line1" validate:"required"`
	AddressLine2  string              `json:"address_line2"`
	City          string              `json:"city" validate:"required"`
	State         string              `json:"state" validate:"required"`
	PostalCode    string              `json:"postal_code" validate:"required,zipcode"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required,payment_method"`
	CardNumber    string              `json:"card_number,omitempty"`
	CardExpiry    string              `json:"card_expiry,omitempty"`
	CardCVV       string              `json:"card_cvv,omitempty"`
}

// normalized trims every text field.
func (f Form) normalized() Form {
	trim := strings.TrimSpace
	f.FullName = trim(f.FullName)
	f.Email = trim(f.Email)
	f.Phone = trim(f.Phone)
	f.AddressLine1 = trim(f.AddressLine1)
	f.AddressLine2 = trim(f.AddressLine2)
	f.City = trim(f.City)
	f.State = trim(f.State)
	f.PostalCode = trim(f.PostalCode)
	f.CardNumber = trim(f.CardNumber)
	f.CardExpiry = trim(f.CardExpiry)
	f.CardCVV = trim(f.CardCVV)
	return f
}

func (f Form) contact() orders.Contact {
	return orders.Contact{FullName: f.FullName, Email: f.Email, Phone: f.Phone}
}

func (f Form) address() orders.Address {
	return orders.Address{
		Line1:      f.AddressLine1,
		Line2:      f.AddressLine2,
		City:       f.City,
		State:      f.State,
		PostalCode: f.PostalCode,
	}
}

// payment describes the method without retaining card data.
func (f Form) payment() orders.Payment {
	p := orders.Payment{Method: f.PaymentMethod}
	switch f.PaymentMethod {
	case enums.PaymentMethodCard:
		digits := cardDigits(f.CardNumber)
		last4 := digits
		if len(digits) > 4 {
			last4 = digits[len(digits)-4:]
		}
		p.Descriptor = fmt.Sprintf("%s ending %s", cardBrand(digits), last4)
	case enums.PaymentMethodPaypal:
		p.Descriptor = "PayPal"
	case enums.PaymentMethodCashOnDelivery:
		p.Descriptor = "Cash on delivery"
	}
	return p
}

var (
	phoneRe  = regexp.MustCompile(`^(\(\d{3}\)|\d{3})[-.\s]?\d{3}[-.\s]?\d{4}$`)
	zipRe    = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	cardRe   = regexp.MustCompile(`^\d{13,16}$`)
	expiryRe = regexp.MustCompile(`^(\d{2})/(\d{2})$`)
	cvvRe    = regexp.MustCompile(`^\d{3,4}$`)
)

func cardDigits(number string) string {
	return strings.ReplaceAll(number, " ", "")
}

func cardBrand(digits string) string {
	switch {
	case strings.HasPrefix(digits, "4"):
		return "Visa"
	case strings.HasPrefix(digits, "34"), strings.HasPrefix(digits, "37"):
		return "Amex"
	case strings.HasPrefix(digits, "5"), strings.HasPrefix(digits, "2"):
		return "Mastercard"
	case strings.HasPrefix(digits, "6"):
		return "Discover"
	}
	return "Card"
}

// expiryValid accepts MM/YY for the current month or later.
func expiryValid(value string, now time.Time) bool {
	m := expiryRe.FindStringSubmatch(value)
	if m == nil {
		return false
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return false
	}
	year += 2000
	return year > now.Year() || (year == now.Year() && month >= int(now.Month()))
}

// newValidator registers the checkout tags; now anchors the expiry check.
func newValidator(now func() time.Time) *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("zipcode", func(fl validator.FieldLevel) bool {
		return zipRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		return enums.PaymentMethod(fl.Field().String()).IsValid()
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		form := sl.Current().Interface().(Form)
		if form.PaymentMethod != enums.PaymentMethodCard {
			return
		}
		if form.CardNumber == "" {
			sl.ReportError(form.CardNumber, "card_number", "CardNumber", "required", "")
		} else if !cardRe.MatchString(cardDigits(form.CardNumber)) {
			sl.ReportError(form.CardNumber, "card_number", "CardNumber", "card_number", "")
		}
		if form.CardExpiry == "" {
			sl.ReportError(form.CardExpiry, "card_expiry", "CardExpiry", "required", "")
		} else if !expiryValid(form.CardExpiry, now()) {
			sl.ReportError(form.CardExpiry, "card_expiry", "CardExpiry", "card_expiry", "")
		}
		if form.CardCVV == "" {
			sl.ReportError(form.CardCVV, "card_cvv", "CardCVV", "required", "")
		} else if !cvvRe.MatchString(form.CardCVV) {
			sl.ReportError(form.CardCVV, "card_cvv", "CardCVV", "cvv", "")
		}
	}, Form{})
	return v
}

func fieldFailures(err error) (map[string]string, bool) {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = failureMessage(fe.Tag())
	}
	return out, true
}

func failureMessage(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "phone":
		return "must be a 10 digit phone number"
	case "zipcode":
		return "must be a 5 digit ZIP or ZIP+4"
	case "payment_method":
		return "is not a supported payment method"
	case "card_number":
		return "must be 13 to 16 digits"
	case "card_expiry":
		return "must be MM/YY and not in the past"
	case "cvv":
		return "must be 3 or 4 digits"
	}
	return "is invalid"
}
