package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an error code
type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest        ErrorCode = "BAD_REQUEST"
	ErrCodeInternalError     ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeIllegalTransition ErrorCode = "ILLEGAL_TRANSITION"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeUnavailable       ErrorCode = "SERVICE_UNAVAILABLE"
)

// AppError represents an application error.
// Details carries the context a caller needs to retry correctly
// (entity kind and id, current and requested status, failing fields).
type AppError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a detail entry and returns the same error
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation reports a missing or malformed field supplied by the caller
func Validation(message string, fields map[string]string) *AppError {
	e := New(ErrCodeValidation, message)
	if len(fields) > 0 {
		e.WithDetail("fields", fields)
	}
	return e
}

// NotFound reports an operation that targets a nonexistent entity
func NotFound(kind string, id any) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s %v not found", kind, id)).
		WithDetail("kind", kind).
		WithDetail("id", id)
}

// IllegalTransition reports a move rejected by a state machine
func IllegalTransition(kind string, id any, current, requested string) *AppError {
	return New(ErrCodeIllegalTransition,
		fmt.Sprintf("%s %v cannot move from %q to %q", kind, id, current, requested)).
		WithDetail("kind", kind).
		WithDetail("id", id).
		WithDetail("current_status", current).
		WithDetail("requested_status", requested)
}

// Conflict reports a lost concurrent-mutation race
func Conflict(kind string, id any, message string) *AppError {
	return New(ErrCodeConflict, message).
		WithDetail("kind", kind).
		WithDetail("id", id)
}

// Unauthorized reports a caller lacking the required capability
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

// Unavailable reports loss of the persistent store
func Unavailable(message string, err error) *AppError {
	return Wrap(ErrCodeUnavailable, message, err)
}

// CodeOf returns the code of the first AppError in err's chain,
// or ErrCodeInternalError when there is none
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// As exposes the first AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

// IsNotFound checks if error is NotFound
func IsNotFound(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeNotFound
}

// IsUnauthorized checks if error is Unauthorized
func IsUnauthorized(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeUnauthorized
}

// IsForbidden checks if error is Forbidden
func IsForbidden(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeForbidden
}

// IsValidation checks if error is a ValidationError
func IsValidation(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeValidation
}

// IsIllegalTransition checks if error is IllegalTransition
func IsIllegalTransition(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeIllegalTransition
}

// IsConflict checks if error is Conflict
func IsConflict(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeConflict
}

// IsUnavailable checks if error is ServiceUnavailable
func IsUnavailable(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeUnavailable
}
