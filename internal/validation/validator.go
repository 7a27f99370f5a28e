// Package validation provides HTTP request validation utilities using the validator/v10 library.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/jthaw/cdrack/internal/errors"
)

// Messages returned to clients. These strings are part of the public API.
const (
	MsgMissing  = "missing"
	MsgTooShort = "Too short"
	MsgTooLong  = "Too long"
	MsgNumber   = "Invalid number"
	MsgEmail    = "Invalid email"
	MsgInvalid  = "invalid"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v        *validator.Validate
	messages map[string]string
}

// New creates a validator configured for our domain.
func New() *Validator {
	v := validator.New()

	// Use JSON tag names as keys.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	val := &Validator{
		v: v,
		messages: map[string]string{
			"required": MsgMissing,
			"present":  MsgMissing,
			"min":      MsgTooShort,
			"max":      MsgTooLong,
			"e164":     MsgNumber,
			"email":    MsgEmail,
		},
	}

	// present: a string that is non-empty after trimming whitespace.
	_ = v.RegisterValidation("present", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() != reflect.String {
			return !f.IsZero()
		}
		return strings.TrimSpace(f.String()) != ""
	})

	return val
}

// Register adds a custom rule under tag. Failures report message.
func (v *Validator) Register(tag string, fn func(value string) bool, message string) error {
	err := v.v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return fn(fl.Field().String())
	})
	if err != nil {
		return err
	}
	v.messages[tag] = message
	return nil
}

// Validate validates a struct and returns a domain validation error listing
// every failed key in field order.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	keys := make([]domainerrors.KeyError, 0, len(validationErrs))
	for _, e := range validationErrs {
		keys = append(keys, domainerrors.KeyError{Key: e.Field(), Message: v.friendlyMessage(e)})
	}
	return domainerrors.Validation(keys...)
}

func (v *Validator) friendlyMessage(e validator.FieldError) string {
	if msg, ok := v.messages[e.Tag()]; ok {
		return msg
	}
	return MsgInvalid
}
