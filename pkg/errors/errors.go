package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeQuota       ErrorType = "quota"
	ErrorTypeArchive     ErrorType = "archive"
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error is an error with type information. Code carries the HTTP status or
// process exit code when one is known.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (code %d): %s: %v", e.Type, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error without a cause
func New(t ErrorType, code int, msg string) *Error {
	return &Error{Type: t, Message: msg, Code: code}
}

// Wrap creates a typed error around cause
func Wrap(t ErrorType, code int, msg string, cause error) *Error {
	return &Error{Type: t, Message: msg, Code: code, Err: cause}
}

// IsType reports whether err or anything it wraps is an *Error of type t
func IsType(err error, t ErrorType) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// FromStatusCode maps a non-2xx HTTP status to a typed error
func FromStatusCode(statusCode int, url string) *Error {
	msg := fmt.Sprintf("unexpected status %d for %s", statusCode, url)
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return New(ErrorTypeAuth, statusCode, msg)
	case statusCode == http.StatusNotFound:
		return New(ErrorTypeNotFound, statusCode, msg)
	case statusCode == http.StatusTooManyRequests:
		return New(ErrorTypeRateLimit, statusCode, msg)
	case statusCode >= 500:
		return New(ErrorTypeServerError, statusCode, msg)
	default:
		return New(ErrorTypeUnknown, statusCode, msg)
	}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}
