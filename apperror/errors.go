package apperror

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind categorizes errors raised by the data access layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindForbidden
	KindQuotaExceeded
	KindRateLimited
	KindConnection
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindRateLimited:
		return "rate_limited"
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// Error wraps a failure with its kind and the caller that raised it.
// Messages must stay caller-safe: no scoped keys, no backend internals.
type Error struct {
	Kind       Kind
	Message    string
	Original   error
	CallerInfo string
}

func (e *Error) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("[%s] %s (at %s): %v", e.Kind, e.Message, e.CallerInfo, e.Original)
	}
	return fmt.Sprintf("[%s] %s (at %s)", e.Kind, e.Message, e.CallerInfo)
}

func (e *Error) Unwrap() error {
	return e.Original
}

// New creates a new structured error of the given kind.
func New(kind Kind, message string, err error) *Error {
	return &Error{
		Kind:       kind,
		Message:    message,
		Original:   err,
		CallerInfo: captureCallerInfo(2),
	}
}

func newKind(kind Kind, message string, err error) *Error {
	return &Error{
		Kind:       kind,
		Message:    message,
		Original:   err,
		CallerInfo: captureCallerInfo(3),
	}
}

func Validation(message string, err error) *Error    { return newKind(KindValidation, message, err) }
func NotFound(message string, err error) *Error      { return newKind(KindNotFound, message, err) }
func Conflict(message string, err error) *Error      { return newKind(KindConflict, message, err) }
func Forbidden(message string, err error) *Error     { return newKind(KindForbidden, message, err) }
func QuotaExceeded(message string, err error) *Error { return newKind(KindQuotaExceeded, message, err) }
func RateLimited(message string, err error) *Error   { return newKind(KindRateLimited, message, err) }
func Connection(message string, err error) *Error    { return newKind(KindConnection, message, err) }
func Timeout(message string, err error) *Error       { return newKind(KindTimeout, message, err) }
func Internal(message string, err error) *Error      { return newKind(KindInternal, message, err) }

// KindOf extracts the kind from an error chain. Unrecognized errors
// report KindInternal so caller switches stay exhaustive.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether any error in the chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func captureCallerInfo(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown:0"
	}
	return fmt.Sprintf("%s:%d", file, line)
}
