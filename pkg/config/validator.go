package config

import (
	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers custom validation functions
func RegisterCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("glob", validateGlob)
}

// validateGlob accepts doublestar patterns such as "**/*.yaml".
func validateGlob(fl validator.FieldLevel) bool {
	pattern := fl.Field().String()
	return pattern != "" && doublestar.ValidatePattern(pattern)
}
