package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypePrivate     ErrorType = "private"
	ErrorTypeConflict    ErrorType = "conflict"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Sentinels for errors.Is checks. Typed *Error values match the sentinel of
// their Type.
var (
	ErrNotFound       = errors.New("not found")
	ErrPrivateAccount = errors.New("account is private")
	ErrConflict       = errors.New("unique constraint conflict")
)

// Error represents a typed error raised by the graph client or the store
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is maps the error type onto the package sentinels
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Type == ErrorTypeNotFound
	case ErrPrivateAccount:
		return e.Type == ErrorTypePrivate
	case ErrConflict:
		return e.Type == ErrorTypeConflict
	}
	return false
}

// New creates a typed error
func New(t ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{Type: t, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed error around an existing cause
func Wrap(t ErrorType, err error, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Err: err}
}

// NotFound reports that a lookup matched nothing
func NotFound(format string, args ...interface{}) *Error {
	return New(ErrorTypeNotFound, 0, format, args...)
}

// Private reports that the remote denied access to an account's content
func Private(accountID string) *Error {
	return New(ErrorTypePrivate, 400, "content of account %s is not accessible", accountID)
}

// Conflict wraps a uniqueness violation
func Conflict(err error, format string, args ...interface{}) *Error {
	return Wrap(ErrorTypeConflict, err, format, args...)
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsPrivate reports whether err signals an inaccessible account
func IsPrivate(err error) bool { return errors.Is(err, ErrPrivateAccount) }

// IsNotFound reports whether err signals a missing resource
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is an expected uniqueness conflict
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // network error
		return true
	case 429:
		return true
	case 400, 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
