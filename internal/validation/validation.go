package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/3lprints/storefront/internal/models"
)

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	pincodePattern = regexp.MustCompile(`^\d{6}$`)
	phonePattern   = regexp.MustCompile(`^(\+?91)?[6-9]\d{9}$`)
)

// Result is the outcome of validating a payload. Errors name the offending JSON field path.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

var (
	once     sync.Once
	validate *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		RegisterTags(validate)
	})
	return validate
}

// RegisterTags installs the storefront rules on v. It is also applied to gin's binding engine
// so handler input structs can use the same tags.
func RegisterTags(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("basic_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		return pincodePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("in_phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		return ValidPaymentMethod(fl.Field().String())
	})
}

// ValidateOrder checks an order payload. It has no side effects and never panics.
func ValidateOrder(req *models.OrderRequest) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Valid: false, Errors: []string{"order data could not be validated"}}
		}
	}()

	if req == nil {
		return Result{Valid: false, Errors: []string{"order data is required"}}
	}

	var msgs []string
	if err := engine().Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return Result{Valid: false, Errors: []string{err.Error()}}
		}
		for _, fe := range verrs {
			msgs = append(msgs, message(fe))
		}
	}

	// Stored totals are whole units, so the rounded value must stay positive.
	if t := req.TotalAmount; t != nil && *t > 0 && *t <= models.MaxAmount && models.RoundAmount(t) < 1 {
		msgs = append(msgs, "total_amount must be at least 1 after rounding")
	}

	if len(msgs) > 0 {
		return Result{Valid: false, Errors: msgs}
	}
	return Result{Valid: true}
}

func message(fe validator.FieldError) string {
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required", "notblank":
		if field == "items" {
			return "items must contain at least one item"
		}
		return field + " is required"
	case "basic_email":
		return field + " must be a valid email address"
	case "pincode":
		return field + " must be a 6-digit postal code"
	case "in_phone":
		return field + " must be a valid Indian mobile number"
	case "payment_method":
		return field + " must be one of " + strings.Join(models.PaymentMethods, ", ")
	case "min":
		if field == "items" {
			return "items must contain at least one item"
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

// fieldPath drops the root struct name: "OrderRequest.items[0].price" -> "items[0].price".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// ValidPhone accepts an Indian mobile number, ignoring spaces and dashes.
func ValidPhone(s string) bool {
	s = strings.NewReplacer(" ", "", "-", "").Replace(s)
	return phonePattern.MatchString(s)
}

func ValidPaymentMethod(s string) bool {
	for _, m := range models.PaymentMethods {
		if s == m {
			return true
		}
	}
	return false
}

func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

func ValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func ValidOrderStatus(s string) bool {
	return models.OrderStatus(s).IsValid()
}

func ValidPaymentStatus(s string) bool {
	return models.PaymentStatus(s).IsValid()
}

// ValidPercentage accepts a discount in the closed range 0..100.
func ValidPercentage(p float64) bool {
	return p >= 0 && p <= 100
}
