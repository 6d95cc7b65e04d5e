package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Standard sentinel errors for common cases.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrInternal          = errors.New("internal error")
)

// Error codes. They follow the lowercase-hyphen form callable clients expect.
const (
	CodeInvalidArgument   = "invalid-argument"
	CodeResourceExhausted = "resource-exhausted"
	CodeUnauthenticated   = "unauthenticated"
	CodeInternal          = "internal"
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil && !isSentinel(e.Err) && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's code, so that
// errors.Is(err, ErrInternal) holds even when Err carries the backend cause.
func (e *AppError) Is(target error) bool {
	return sentinelFor(e.Code) == target
}

// InvalidArgument creates a 400 error for a missing or malformed field.
func InvalidArgument(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidArgument,
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidArgument,
	}
}

// ResourceExhausted creates a 429 error for payloads over a size ceiling.
func ResourceExhausted(message string) *AppError {
	return &AppError{
		Code:    CodeResourceExhausted,
		Message: message,
		Status:  http.StatusTooManyRequests,
		Err:     ErrResourceExhausted,
	}
}

// Unauthenticated creates a 401 error.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthenticated,
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthenticated,
	}
}

// Internal creates a 500 error that keeps the cause's message visible to
// callers. A nil cause yields a generic message.
func Internal(err error) *AppError {
	if err == nil {
		return InternalMessage("an internal error occurred", nil)
	}
	return InternalMessage(err.Error(), err)
}

// InternalMessage creates a 500 error with an explicit message.
func InternalMessage(message string, err error) *AppError {
	if err == nil {
		err = ErrInternal
	}
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// As returns the AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsClientError reports whether err is a typed failure caused by the caller
// (any AppError whose status is below 500).
func IsClientError(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Status < http.StatusInternalServerError
}

// CanonicalStatus converts a code such as "invalid-argument" into the
// upper-case canonical form "INVALID_ARGUMENT".
func CanonicalStatus(code string) string {
	if code == "" {
		return "INTERNAL"
	}
	return strings.ToUpper(strings.ReplaceAll(code, "-", "_"))
}

func sentinelFor(code string) error {
	switch code {
	case CodeInvalidArgument:
		return ErrInvalidArgument
	case CodeResourceExhausted:
		return ErrResourceExhausted
	case CodeUnauthenticated:
		return ErrUnauthenticated
	case CodeInternal:
		return ErrInternal
	default:
		return nil
	}
}

func isSentinel(err error) bool {
	switch err {
	case ErrInvalidArgument, ErrResourceExhausted, ErrUnauthenticated, ErrInternal:
		return true
	}
	return false
}
