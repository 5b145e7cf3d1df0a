package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by the client store.
type ErrorKind string

const (
	KindValidation     ErrorKind = "VALIDATION"
	KindNotFound       ErrorKind = "NOT_FOUND"
	KindTransientStore ErrorKind = "TRANSIENT_STORE"
	KindPermanentStore ErrorKind = "PERMANENT_STORE"
	KindCircuitOpen    ErrorKind = "CIRCUIT_OPEN"
	KindCanceled       ErrorKind = "CANCELED"
)

// Sentinels for errors.Is matching. Every *Error unwraps to the sentinel of its kind.
var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("resource not found")
	ErrTransientStore = errors.New("transient store failure")
	ErrPermanentStore = errors.New("permanent store failure")
	ErrCircuitOpen    = errors.New("circuit breaker is open")
	ErrCanceled       = errors.New("operation canceled")
)

var sentinels = map[ErrorKind]error{
	KindValidation:     ErrValidation,
	KindNotFound:       ErrNotFound,
	KindTransientStore: ErrTransientStore,
	KindPermanentStore: ErrPermanentStore,
	KindCircuitOpen:    ErrCircuitOpen,
	KindCanceled:       ErrCanceled,
}

// Error is a classified failure with an optional underlying cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the kind sentinel and the cause, so errors.Is works
// for ErrNotFound as well as for driver errors or context.Canceled.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := sentinels[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Validation creates a validation error.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not found error for the given identifier.
func NotFound(what string, id any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: %v", what, id)}
}

func TransientStore(message string, cause error) error {
	return &Error{Kind: KindTransientStore, Message: message, Err: cause}
}

func PermanentStore(message string, cause error) error {
	return &Error{Kind: KindPermanentStore, Message: message, Err: cause}
}

func CircuitOpen(operation string) error {
	return &Error{Kind: KindCircuitOpen, Message: fmt.Sprintf("%s rejected", operation)}
}

// Canceled wraps a context error so both ErrCanceled and the context error match.
func Canceled(cause error) error {
	if cause == nil {
		cause = context.Canceled
	}
	return &Error{Kind: KindCanceled, Message: "operation canceled", Err: cause}
}

// KindOf returns the kind of a classified error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsCanceled(err error) bool   { return errors.Is(err, ErrCanceled) }
