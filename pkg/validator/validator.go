package validator

import (
	"errors"
	"reflect"
	"strings"

	validators "github.com/go-playground/validator/v10"
	nonstandard "github.com/go-playground/validator/v10/non-standard/validators"
)

// Validator interface
type Validator interface {
	ValidateStruct(inf interface{}) error
}

// FieldError names one rejected field by its JSON name and the failed rule
type FieldError struct {
	Field string
	Rule  string
}

// Errors is returned by ValidateStruct when one or more fields are rejected
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+" failed "+fe.Rule)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Has reports whether field failed rule
func (e Errors) Has(field, rule string) bool {
	for _, fe := range e {
		if fe.Field == field && fe.Rule == rule {
			return true
		}
	}
	return false
}

type validator struct {
	validator *validators.Validate
}

// New Validator func - registers notblank, which rejects whitespace only strings
func New() Validator {
	v := validators.New()
	_ = v.RegisterValidation("notblank", nonstandard.NotBlank)
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return &validator{
		validator: v,
	}
}

// ValidateStruct func
func (v *validator) ValidateStruct(inf interface{}) error {
	err := v.validator.Struct(inf)
	if err == nil {
		return nil
	}

	var fieldErrs validators.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	result := make(Errors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		result = append(result, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return result
}
