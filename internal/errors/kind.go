package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes an error for executor results and API responses.
// Kinds are advisory: classification from raw text is substring-based
// and not derived from structured exit codes or API error taxonomies.
type Kind string

// Error kind values.
const (
	KindValidation    Kind = "validation_error"
	KindExecution     Kind = "execution_error"
	KindNetwork       Kind = "network_error"
	KindTimeout       Kind = "timeout_error"
	KindPermission    Kind = "permission_error"
	KindConfiguration Kind = "configuration_error"
	KindRetrieval     Kind = "retrieval_error"
	KindGeneration    Kind = "generation_error"
	KindUnknown       Kind = "unknown_error"
)

// Error is a typed error carrying a kind tag, a message, free-form details,
// and an optional wrapped cause. It is the single error shape crossing the
// executor and agent boundaries.
type Error struct {
	// Kind tags the error category.
	Kind Kind

	// Msg is the error message.
	Msg string

	// Details holds additional structured context (command, exit code, etc.).
	Details map[string]any

	// Err is the wrapped cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap returns the wrapped cause for errors.Is/As traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// E constructs a typed Error with the given kind and message.
func E(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// WithDetail attaches a key/value pair to the error's details map,
// returning the error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause attaches the wrapped cause, returning the error for chaining.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// KindOf returns the kind of err. Typed errors report their own kind;
// anything else is classified best-effort from its message text.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return Classify(err)
}

// Classify infers an error kind from a generic error's message text.
// The match is substring-based and best-effort, not guaranteed accurate.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return KindTimeout
	case strings.Contains(msg, "permission") || strings.Contains(msg, "access denied"):
		return KindPermission
	case strings.Contains(msg, "connection") || strings.Contains(msg, "network"):
		return KindNetwork
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "validation"):
		return KindValidation
	default:
		return KindUnknown
	}
}
