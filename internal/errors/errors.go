package errors

import (
	"errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, preserving an existing code
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// GetCode returns the error code if it's an AppError, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode checks whether err carries the given code
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

// Error taxonomy.
//
// NotFound/InvalidTransition/InvalidState are caller errors: surfaced
// immediately, never retried. Provider failures are retried per policy;
// exhaustion becomes a persisted failure state, not a raised error to
// unrelated callers. Delivery failures are recorded in the report and
// never propagated.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInvalidState      = "INVALID_STATE"
	CodeProviderTransient = "PROVIDER_TRANSIENT"
	CodeProviderPermanent = "PROVIDER_PERMANENT"
	CodeDeliveryFailed    = "DELIVERY_FAILED"
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeDatabaseError     = "DATABASE_ERROR"
	CodeInternalError     = "INTERNAL_ERROR"
)

// Common error constructors

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InvalidTransition(from, to string) *AppError {
	return New(CodeInvalidTransition, fmt.Sprintf("transition %s -> %s is not allowed", from, to))
}

func InvalidState(message string) *AppError {
	return New(CodeInvalidState, message)
}

func ProviderTransient(provider string, cause error) *AppError {
	return &AppError{
		Code:    CodeProviderTransient,
		Message: fmt.Sprintf("%s provider transient failure", provider),
		Cause:   cause,
	}
}

func ProviderPermanent(provider string, cause error) *AppError {
	return &AppError{
		Code:    CodeProviderPermanent,
		Message: fmt.Sprintf("%s provider permanent failure", provider),
		Cause:   cause,
	}
}

func DeliveryFailed(message string) *AppError {
	return New(CodeDeliveryFailed, message)
}

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}
