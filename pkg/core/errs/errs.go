// Package errs defines the error kinds surfaced by the allocation core.
//
// Callers branch on kind with errors.Is against the sentinel values, e.g.
//
//	if errors.Is(err, errs.ErrConstraintViolation) { ... }
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error
type Kind string

const (
	KindValidation          Kind = "VALIDATION"
	KindInsufficientData    Kind = "INSUFFICIENT_DATA"
	KindModelUnavailable    Kind = "MODEL_UNAVAILABLE"
	KindConstraintViolation Kind = "CONSTRAINT_VIOLATION"
	KindPersistence         Kind = "PERSISTENCE"
	KindNotFound            Kind = "NOT_FOUND"
)

// Sentinels for errors.Is matching. Every *Error matches the sentinel of its kind.
var (
	ErrValidation          = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrInsufficientData    = &Error{Kind: KindInsufficientData, Message: "insufficient training data"}
	ErrModelUnavailable    = &Error{Kind: KindModelUnavailable, Message: "model unavailable"}
	ErrConstraintViolation = &Error{Kind: KindConstraintViolation, Message: "constraint violation"}
	ErrPersistence         = &Error{Kind: KindPersistence, Message: "persistence failure"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
)

// Error is a classified error with optional structured fields
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// WithField attaches a structured field and returns the same error
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

func newf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Wrap classifies cause under kind, keeping it available to errors.As
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return newf(kind, cause, format, args...)
}

// Validation reports bad or missing input
func Validation(format string, args ...any) *Error {
	return newf(KindValidation, nil, format, args...)
}

// InsufficientData reports a training set below the minimum sample threshold
func InsufficientData(have, need int) *Error {
	return newf(KindInsufficientData, nil, "need at least %d valid examples, got %d", need, have).
		WithField("have", have).
		WithField("need", need)
}

// ModelUnavailable reports a backend that cannot score (untrained, failed, missing)
func ModelUnavailable(backend string, cause error) *Error {
	return newf(KindModelUnavailable, cause, "backend %q cannot score", backend).
		WithField("backend", backend)
}

// ConstraintViolation reports a hard allocation constraint that the candidates cannot satisfy
func ConstraintViolation(constraint, format string, args ...any) *Error {
	return newf(KindConstraintViolation, nil, "%s: %s", constraint, fmt.Sprintf(format, args...)).
		WithField("constraint", constraint)
}

// Persistence wraps a model load/save failure
func Persistence(op string, cause error) *Error {
	return newf(KindPersistence, cause, "model %s failed", op).
		WithField("op", op)
}

// NotFound reports records that a lookup did not return
func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, nil, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
