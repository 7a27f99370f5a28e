// Package errors provides standardized domain errors with codes for the catalog API.
//
// Usage:
//
//	// In handlers - return typed errors
//	if !ok {
//	    return errors.Verification()
//	}
//
//	// At the boundary - map to a status
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    status := domainErr.HTTPStatus()
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	New    = errors.New
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeValidation   Code = "VALIDATION"
	CodeVerification Code = "VERIFICATION"
	CodeNotFound     Code = "NOT_FOUND"
	CodeUpstream     Code = "UPSTREAM"
	CodeInternal     Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation, CodeVerification:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// KeyError describes a single failed request field.
type KeyError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Error is a domain error with a code, message, and optional key-level details.
type Error struct {
	Code    Code       `json:"code"`
	Message string     `json:"message"`
	Keys    []KeyError `json:"keys,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Keys:    e.Keys,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrValidation   = &Error{Code: CodeValidation, Message: "validation error"}
	ErrVerification = &Error{Code: CodeVerification, Message: "verification failed"}
	ErrNotFound     = &Error{Code: CodeNotFound, Message: "not found"}
	ErrUpstream     = &Error{Code: CodeUpstream, Message: "upstream error"}
	ErrInternal     = &Error{Code: CodeInternal, Message: "internal error"}
)

// Validation creates a validation error carrying the failed keys.
func Validation(keys ...KeyError) *Error {
	return &Error{Code: CodeValidation, Message: "validation failed", Keys: keys}
}

// Verification creates the human-verification failure error.
func Verification() *Error {
	return &Error{
		Code:    CodeVerification,
		Message: "verification failed",
		Keys:    []KeyError{{Key: "recaptcha", Message: "Recaptcha error"}},
	}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Upstream wraps a failure from an external provider.
func Upstream(err error, msg string) *Error {
	return &Error{Code: CodeUpstream, Message: msg, cause: err}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}
