// Package errors provides standardized error handling for WhastapWeb
// components. It classifies failures into the kinds the HTTP surface
// needs to map onto status codes, and provides helper functions for
// consistent error wrapping across the system.
package errors

import (
	"errors"
	"fmt"
)

// Kind represents the classification of errors for handling purposes
type Kind int

const (
	// KindEngine represents failures of the underlying protocol engine
	KindEngine Kind = iota
	// KindInvalid represents errors due to invalid request payloads
	KindInvalid
	// KindUnauthorized represents missing or non-matching API keys
	KindUnauthorized
	// KindConflict represents operations on a session that already exists
	KindConflict
	// KindNotFound represents operations referencing an absent session
	KindNotFound
	// KindTimeout represents a bounded wait that expired
	KindTimeout
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindEngine:
		return "engine"
	case KindInvalid:
		return "invalid"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Session lifecycle errors
	ErrSessionExists       = errors.New("session already exists")
	ErrSessionNotFound     = errors.New("session does not exist")
	ErrSessionNameRequired = errors.New("session name is required")
	ErrStartTimeout        = errors.New("session start timed out")

	// Access control errors
	ErrMissingAPIKey = errors.New("missing api key")
	ErrInvalidAPIKey = errors.New("invalid api key")

	// Engine errors
	ErrEngineUnavailable = errors.New("engine unavailable")
)

// FieldError describes a single field-level validation failure
type FieldError struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Kind      Kind
	Err       error
	Message   string
	Component string
	Operation string
	Fields    []FieldError
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// KindOf returns the classification for an error. Unclassified errors
// default to KindEngine so unknown failures surface as server-side.
func KindOf(err error) Kind {
	if err == nil {
		return KindEngine
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}

	switch {
	case errors.Is(err, ErrSessionExists):
		return KindConflict
	case errors.Is(err, ErrSessionNotFound):
		return KindNotFound
	case errors.Is(err, ErrSessionNameRequired):
		return KindInvalid
	case errors.Is(err, ErrStartTimeout):
		return KindTimeout
	case errors.Is(err, ErrMissingAPIKey), errors.Is(err, ErrInvalidAPIKey):
		return KindUnauthorized
	}

	return KindEngine
}

// IsInvalid checks if an error is due to an invalid request payload
func IsInvalid(err error) bool {
	return err != nil && KindOf(err) == KindInvalid
}

// IsUnauthorized checks if an error is an access control failure
func IsUnauthorized(err error) bool {
	return err != nil && KindOf(err) == KindUnauthorized
}

// IsConflict checks if an error is a session-exists conflict
func IsConflict(err error) bool {
	return err != nil && KindOf(err) == KindConflict
}

// IsNotFound checks if an error references an absent session
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// IsTimeout checks if an error is an expired bounded wait
func IsTimeout(err error) bool {
	return err != nil && KindOf(err) == KindTimeout
}

// IsEngine checks if an error is an engine failure
func IsEngine(err error) bool {
	return err != nil && KindOf(err) == KindEngine
}

// Details returns the field-level diagnostics attached to an error, if any
func Details(err error) []FieldError {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Fields
	}
	return nil
}

// newClassified creates a new classified error
// This is an internal helper - use the Wrap* functions instead.
func newClassified(kind Kind, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Kind:      kind,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapEngine wraps an error as an engine failure with context
func WrapEngine(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(KindEngine, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid input with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(KindInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// WrapUnauthorized wraps an error as an access control failure with context
func WrapUnauthorized(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(KindUnauthorized, wrappedErr, component, method, wrappedErr.Error())
}

// WrapConflict wraps an error as a session conflict with context
func WrapConflict(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(KindConflict, wrappedErr, component, method, wrappedErr.Error())
}

// WrapNotFound wraps an error as an absent-session failure with context
func WrapNotFound(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(KindNotFound, wrappedErr, component, method, wrappedErr.Error())
}

// WrapTimeout wraps an error as an expired bounded wait with context
func WrapTimeout(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(KindTimeout, wrappedErr, component, method, wrappedErr.Error())
}

// Validation creates an invalid-input error carrying field-level diagnostics.
// The message is the caller-facing summary; fields name the offending parts
// of the payload.
func Validation(component, operation, message string, fields ...FieldError) error {
	ce := newClassified(KindInvalid, errors.New(message), component, operation, message)
	ce.Fields = fields
	return ce
}
