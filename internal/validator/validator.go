package validator

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"stabledesk/internal/form"
	"stabledesk/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var nanValue = math.NaN()

const maxPasswordBytes = 72

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`\d`)
	specialRe = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>\-_=+\[\]/\;'~]`)
)

// Errors is an ordered list of human readable field errors.
type Errors []string

func (e Errors) Error() string {
	return "validation failed: " + strings.Join(e, "; ")
}

// Validator is the single set of input rules shared by every endpoint.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if label := field.Tag.Get("label"); label != "" {
			return label
		}
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		n := field.Interface().(form.Number)
		switch {
		case !n.Set:
			return nil
		case n.Invalid:
			// NaN fails every numeric comparison.
			return nanValue
		default:
			return n.Value
		}
	}, form.Number{})

	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		f := field.Interface().(form.Flag)
		if !f.Set {
			return nil
		}
		return f.Value
	}, form.Flag{})

	// Partial updates use Optional. It is exposed as a pointer so omitempty
	// skips only absent values and a given "" still meets the other rules.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		o := field.Interface().(util.Optional[string])
		if !o.IsSet {
			return (*string)(nil)
		}
		return &o.Val
	}, util.Optional[string]{})

	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("password_strength", validatePasswordStrength)
	_ = v.RegisterValidation("enum", validateEnum)
	_ = v.RegisterValidation("consumable_category", validateConsumableCategory)
	_ = v.RegisterValidation("price_range", validatePriceRange)

	return &Validator{validate: v}
}

// Struct validates s and returns Errors when any rule fails.
func (v *Validator) Struct(s any) error {
	return v.check(s, "")
}

func (v *Validator) check(s any, prefix string) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validator: %w", err)
	}

	out := make(Errors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, prefix+message(fe))
	}
	return out
}

// Items validates every element and prefixes messages with the 1-based
// position, e.g. "Horse 2: Breed is required". Errors keep element order.
func Items[T any](v *Validator, label string, items []T) error {
	var all Errors
	for i := range items {
		err := v.check(&items[i], fmt.Sprintf("%s %d: ", label, i+1))
		if err == nil {
			continue
		}
		var errs Errors
		if !errors.As(err, &errs) {
			return err
		}
		all = append(all, errs...)
	}
	if len(all) > 0 {
		return all
	}
	return nil
}

// Password checks a password against the password policy on its own.
func (v *Validator) Password(password string) bool {
	return v.validate.Var(password, "password_strength") == nil
}

func validatePasswordStrength(fl validator.FieldLevel) bool {
	password := fl.Field().String()

	// bcrypt only hashes the first 72 bytes and rejects longer input.
	if len(password) < 8 || len(password) > maxPasswordBytes {
		return false
	}

	return upperRe.MatchString(password) &&
		lowerRe.MatchString(password) &&
		digitRe.MatchString(password) &&
		specialRe.MatchString(password)
}

func validateEnum(fl validator.FieldLevel) bool {
	return InEnum(fl.Param(), fl.Field().String())
}

// validateConsumableCategory checks the category against the sibling type
// field named by the tag parameter. Unknown types are left to the enum rule.
func validateConsumableCategory(fl validator.FieldLevel) bool {
	typeField := parentStruct(fl).FieldByName(fl.Param())
	if !typeField.IsValid() || typeField.Kind() != reflect.String {
		return false
	}
	categories, ok := consumableCategories[typeField.String()]
	if !ok {
		return true
	}
	for _, c := range categories {
		if c == fl.Field().String() {
			return true
		}
	}
	return false
}

// validatePriceRange sits on the minimum and compares it with the sibling
// maximum named by the tag parameter. A zero or missing minimum never
// exceeds a valid maximum, so omitempty on the minimum is safe. A maximum
// that was given as 0 still takes part in the comparison.
func validatePriceRange(fl validator.FieldLevel) bool {
	maxField := parentStruct(fl).FieldByName(fl.Param())
	if !maxField.IsValid() {
		return false
	}
	upper, ok := maxField.Interface().(form.Number)
	if !ok || !upper.Set || upper.Invalid {
		return true
	}

	var lower float64
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		lower = fl.Field().Float()
	default:
		return true
	}
	if math.IsNaN(lower) {
		return true
	}
	return lower <= upper.Value
}

func parentStruct(fl validator.FieldLevel) reflect.Value {
	parent := fl.Parent()
	for parent.Kind() == reflect.Ptr {
		parent = parent.Elem()
	}
	return parent
}
