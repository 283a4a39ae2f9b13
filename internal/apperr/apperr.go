// Package apperr defines coded application errors and their HTTP mapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for the response envelope.
type Code string

const (
	CodeInvalid       Code = "INVALID_INPUT"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeNotFound      Code = "NOT_FOUND"
	CodeMethod        Code = "METHOD_NOT_ALLOWED"
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeConfigMissing Code = "CONFIG_MISSING"
	CodeUpstream      Code = "UPSTREAM_FAILED"
	CodeStorage       Code = "STORAGE_FAILED"
	CodeInternal      Code = "INTERNAL_ERROR"
)

// Error is an application error with a code and a caller-facing message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to err.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Invalid reports a caller input error.
func Invalid(format string, args ...any) *Error {
	return New(CodeInvalid, fmt.Sprintf(format, args...))
}

// MissingConfig reports a required configuration value that is not set.
func MissingConfig(name string) *Error {
	return New(CodeConfigMissing, name+" is not configured")
}

// Upstream wraps a third-party failure. The upstream message is kept in
// the caller-facing text.
func Upstream(service string, err error) *Error {
	return Wrap(CodeUpstream, fmt.Sprintf("%s request failed: %v", service, err), err)
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Status maps err to an HTTP status code. Uncoded errors are 500.
func Status(err error) int {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeInvalid:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethod:
		return http.StatusMethodNotAllowed
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-facing message for err.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
