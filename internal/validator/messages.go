package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

func message(fe validator.FieldError) string {
	label := fe.Field()
	if label == "" {
		label = fe.StructField()
	}

	switch fe.Tag() {
	case "required", "notblank", "required_without", "required_if":
		return label + " is required"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", label, fe.Param())
	case "gte":
		if fe.Param() == "0" {
			return label + " must be non-negative"
		}
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "lte", "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s must contain at least %s items", label, fe.Param())
	case "email":
		return label + " must be a valid email address"
	case "uuid", "uuid4":
		return label + " must be a valid id"
	case "url", "http_url":
		return label + " must be a valid URL"
	case "hexcolor":
		return label + " must be a hex color such as #007AFF"
	case "datetime":
		return label + " must be a date formatted as YYYY-MM-DD"
	case "enum":
		return fmt.Sprintf("%s must be one of: %s", label, strings.Join(enums[fe.Param()], ", "))
	case "consumable_category":
		return label + " does not belong to the selected type"
	case "price_range":
		return "Price range min cannot be greater than max"
	case "password_strength":
		return label + " must be 8 to 72 characters and contain upper and lower case letters, a digit and a special character"
	default:
		return fmt.Sprintf("%s is invalid (%s)", label, fe.Tag())
	}
}
