package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Video resolution validation
	validate.RegisterValidation("resolution", func(fl validator.FieldLevel) bool {
		resolution := fl.Field().String()
		validResolutions := []string{"hd", "fhd", "4k", ""}
		for _, r := range validResolutions {
			if resolution == r {
				return true
			}
		}
		return false
	})

	// Video orientation validation
	validate.RegisterValidation("orientation", func(fl validator.FieldLevel) bool {
		orientation := fl.Field().String()
		validOrientations := []string{"landscape", "portrait", "square", ""}
		for _, o := range validOrientations {
			if orientation == o {
				return true
			}
		}
		return false
	})

	// Credit package validation
	validate.RegisterValidation("package_id", func(fl validator.FieldLevel) bool {
		packageID := fl.Field().String()
		validPackages := []string{"starter", "bundle", "bulk"}
		for _, p := range validPackages {
			if packageID == p {
				return true
			}
		}
		return false
	})

	// Synchronous payment method validation
	validate.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		method := fl.Field().String()
		validMethods := []string{"stripe", "paypal"}
		for _, m := range validMethods {
			if method == m {
				return true
			}
		}
		return false
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "resolution":
			errors[field] = "Invalid resolution. Must be: hd, fhd, or 4k"
		case "orientation":
			errors[field] = "Invalid orientation. Must be: landscape, portrait, or square"
		case "package_id":
			errors[field] = "Invalid package. Must be: starter, bundle, or bulk"
		case "payment_method":
			errors[field] = "Invalid payment method. Must be: stripe or paypal"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
