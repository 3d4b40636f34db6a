// Package domainerrors provides coded errors for the verification engine.
// Services return these across collaborator boundaries instead of raw
// infrastructure errors; transports map codes to status codes.
//
// Stores and adapters return pkg/platform/sentinel errors for infrastructure
// facts; services translate those into coded errors here.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for programmatic handling.
type Code string

const (
	// CodeInvalidInput covers malformed input: bad email syntax, bad ID
	// format, unsupported enum values.
	CodeInvalidInput Code = "invalid_input"

	// CodeBadRequest covers structurally valid but unusable requests.
	CodeBadRequest Code = "bad_request"

	// CodeNotFound covers unknown documents, tokens, and subjects.
	CodeNotFound Code = "not_found"

	// CodeConflict covers operations invalid for the entity's current state.
	CodeConflict Code = "conflict"

	// CodeExpired covers OTP challenges and email tokens past their TTL.
	CodeExpired Code = "expired"

	// CodeUnauthorized covers ownership and role failures.
	CodeUnauthorized Code = "unauthorized"

	// CodeProviderUnavailable covers OTP backend failures that must leave
	// local state untouched.
	CodeProviderUnavailable Code = "provider_unavailable"

	// CodeRateLimited covers requests refused because the caller exceeded
	// an issuance limit.
	CodeRateLimited Code = "rate_limited"

	CodeTimeout  Code = "timeout"
	CodeInternal Code = "internal"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Code == code {
			return true
		}
		if e.cause == nil {
			break
		}
		err = e.cause
	}
	return false
}

// CodeOf returns the code of the outermost coded error, or CodeInternal when
// err carries no code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
