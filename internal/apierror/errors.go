// Package apierror defines the typed errors that cross the service layer.
//
// Each error carries the HTTP status an outer handler should answer with.
// Provider failures inside an email service never become an Error; they are
// converted to result values at the service boundary.
package apierror

import (
	"errors"
	"net/http"
)

// Error is an error with an associated HTTP status code.
type Error struct {
	Status  int    // HTTP status code
	Message string // Human-readable description
	Err     error  // Underlying cause, if any
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error with the given status.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Wrap creates an error with the given status that unwraps to cause.
func Wrap(status int, message string, cause error) *Error {
	return &Error{Status: status, Message: message, Err: cause}
}

// Constructors for the error kinds used across the service layer.
var (
	// NotFound indicates a missing user or resource
	NotFound = func(msg string) *Error { return New(http.StatusNotFound, msg) }

	// Unauthorized indicates missing, invalid or expired credentials
	Unauthorized = func(msg string) *Error { return New(http.StatusUnauthorized, msg) }

	// Forbidden indicates the caller is known but not allowed
	Forbidden = func(msg string) *Error { return New(http.StatusForbidden, msg) }

	// BadRequest indicates invalid input, such as missing tool arguments
	BadRequest = func(msg string) *Error { return New(http.StatusBadRequest, msg) }

	// Internal indicates an unexpected failure
	Internal = func(msg string) *Error { return New(http.StatusInternalServerError, msg) }
)

// StatusOf returns the HTTP status carried by err, or 500 for untyped errors.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return StatusOf(err) == http.StatusNotFound }

// IsUnauthorized reports whether err is an Unauthorized error.
func IsUnauthorized(err error) bool { return StatusOf(err) == http.StatusUnauthorized }

// IsBadRequest reports whether err is a BadRequest error.
func IsBadRequest(err error) bool { return StatusOf(err) == http.StatusBadRequest }
