package models

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared struct validator for model types.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the validate struct tags of v.
func Validate(v any) error {
	return Validator().Struct(v)
}

// ValidateVar checks a single value against a validator tag, e.g. "required,email".
func ValidateVar(v any, tag string) error {
	return Validator().Var(v, tag)
}
