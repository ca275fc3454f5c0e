package apperrors

import (
	"errors"
	"fmt"
)

// Kind categorises an application error. Callers branch on the kind, never on
// the message.
type Kind string

const (
	KindInvalidCredentials     Kind = "INVALID_CREDENTIALS"
	KindAuthenticationRequired Kind = "AUTHENTICATION_REQUIRED"
	KindNotFound               Kind = "NOT_FOUND"
	KindForbidden              Kind = "FORBIDDEN"
	KindInvalidInput           Kind = "INVALID_INPUT"
	KindSlotConflict           Kind = "SLOT_CONFLICT"
	KindInvalidTransition      Kind = "INVALID_TRANSITION"
	KindHasDependents          Kind = "HAS_DEPENDENTS"
	KindAlreadyExists          Kind = "ALREADY_EXISTS"
)

// AppError represents a recoverable, caller-facing error.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *AppError of the same kind, so that
// errors.Is(err, ErrNotFound) matches any not-found error.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidCredentials     = &AppError{Kind: KindInvalidCredentials, Message: "invalid credentials"}
	ErrAuthenticationRequired = &AppError{Kind: KindAuthenticationRequired, Message: "authentication required"}
	ErrNotFound               = &AppError{Kind: KindNotFound, Message: "not found"}
	ErrForbidden              = &AppError{Kind: KindForbidden, Message: "forbidden"}
	ErrInvalidInput           = &AppError{Kind: KindInvalidInput, Message: "invalid input"}
	ErrSlotConflict           = &AppError{Kind: KindSlotConflict, Message: "time slot already booked"}
	ErrInvalidTransition      = &AppError{Kind: KindInvalidTransition, Message: "invalid state transition"}
	ErrHasDependents          = &AppError{Kind: KindHasDependents, Message: "record has dependents"}
	ErrAlreadyExists          = &AppError{Kind: KindAlreadyExists, Message: "already exists"}
)

// New creates an error of the given kind.
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind carrying an underlying cause.
func Wrap(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func NotFound(format string, args ...interface{}) *AppError {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func Forbidden(format string, args ...interface{}) *AppError {
	return New(KindForbidden, fmt.Sprintf(format, args...))
}

func InvalidInput(format string, args ...interface{}) *AppError {
	return New(KindInvalidInput, fmt.Sprintf(format, args...))
}

func InvalidTransition(format string, args ...interface{}) *AppError {
	return New(KindInvalidTransition, fmt.Sprintf(format, args...))
}

func HasDependents(format string, args ...interface{}) *AppError {
	return New(KindHasDependents, fmt.Sprintf(format, args...))
}

func AlreadyExists(format string, args ...interface{}) *AppError {
	return New(KindAlreadyExists, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of the first AppError in err's chain, or "" if
// there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
