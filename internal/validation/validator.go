// Package validation checks request payloads with go-playground/validator
// and turns the first failure into a single human readable message.
//
// Struct fields name themselves through a `label` tag ("First name",
// "Password") so messages read the same regardless of the JSON key.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	emailRe      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	personNameRe = regexp.MustCompile(`^[a-zA-Z\s]{2,50}$`)
	postalCodeRe = regexp.MustCompile(`^[A-Za-z]\d[A-Za-z][ -]?\d[A-Za-z]\d$`)
	cardNumberRe = regexp.MustCompile(`^\d{15,16}$`)
	expiryRe     = regexp.MustCompile(`^(0[1-9]|1[0-2])/([0-9]{2})$`)
	cvvRe        = regexp.MustCompile(`^\d{3}$`)
	lowerRe      = regexp.MustCompile(`[a-z]`)
	upperRe      = regexp.MustCompile(`[A-Z]`)
	digitRe      = regexp.MustCompile(`\d`)
	symbolRe     = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// now is replaced in tests.
var now = time.Now

// Error is a validation failure carrying the message shown to the client.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Validator implements echo.Validator.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator with the storefront rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if l := f.Tag.Get("label"); l != "" {
			return l
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	rules := map[string]func(string) bool{
		"email_format": func(s string) bool { return emailRe.MatchString(s) },
		"person_name":  func(s string) bool { return personNameRe.MatchString(s) },
		"postal_code":  func(s string) bool { return postalCodeRe.MatchString(s) },
		"card_number":  func(s string) bool { return cardNumberRe.MatchString(strings.ReplaceAll(s, " ", "")) },
		"card_expiry":  func(s string) bool { return expiryRe.MatchString(s) },
		"not_expired":  notExpired,
		"cvv":          func(s string) bool { return cvvRe.MatchString(s) },
		"address":      func(s string) bool { n := utf8.RuneCountInString(s); return n >= 5 && n <= 100 },
		"has_lower":    func(s string) bool { return lowerRe.MatchString(s) },
		"has_upper":    func(s string) bool { return upperRe.MatchString(s) },
		"has_digit":    func(s string) bool { return digitRe.MatchString(s) },
		"has_symbol":   func(s string) bool { return symbolRe.MatchString(s) },
	}
	for tag, fn := range rules {
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		})
	}
	// Prices are decimals; compare them as numbers so gt/gte work.
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		if d, ok := f.Interface().(decimal.Decimal); ok {
			n, _ := d.Float64()
			return n
		}
		return nil
	}, decimal.Decimal{})
	return &Validator{v: v}
}

// notExpired accepts an MM/YY expiry whose first day of month is not in
// the past.  Malformed input is left to card_expiry.
func notExpired(s string) bool {
	m := expiryRe.FindStringSubmatch(s)
	if m == nil {
		return true
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	first := time.Date(2000+year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	return !first.Before(now())
}

// Validate returns nil or an *Error describing the first failing field.
func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return &Error{Message: err.Error()}
	}
	fe := ves[0]
	return &Error{Field: fe.Field(), Message: message(fe)}
}

// Var validates a single value against tag; label names it in the message.
func (cv *Validator) Var(value any, tag, label string) error {
	err := cv.v.Var(value, tag)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return &Error{Message: err.Error()}
	}
	return &Error{Field: label, Message: messageFor(label, ves[0])}
}

func message(fe validator.FieldError) string { return messageFor(fe.Field(), fe) }

func messageFor(label string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email_format":
		return "Invalid email format"
	case "person_name":
		return label + " must be 2-50 characters and contain only letters and spaces"
	case "postal_code":
		return "Please enter a valid Canadian ZIP code (e.g., A1A 1A1)"
	case "card_number":
		return "Card number must be 15 or 16 digits"
	case "card_expiry":
		return "Expiry date must be in MM/YY format"
	case "not_expired":
		return "Card has expired"
	case "cvv":
		return "CVV must be exactly 3 digits"
	case "address":
		return label + " must be between 5 and 100 characters"
	case "has_lower":
		return label + " must contain at least one lowercase letter"
	case "has_upper":
		return label + " must contain at least one uppercase letter"
	case "has_digit":
		return label + " must contain at least one number"
	case "has_symbol":
		return label + " must contain at least one special character"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", label, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must not exceed %s characters", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", label, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", label, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", label, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", label, fe.Param())
	}
	return label + " is invalid"
}

// PasswordTag is the rule set every new password must satisfy.  The rules
// run in order and the first failure names the message.
const PasswordTag = "required,min=12,max=64,has_lower,has_upper,has_digit,has_symbol"

// EmailTag is the rule set for account and contact emails.
const EmailTag = "required,email_format"
