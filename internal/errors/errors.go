// Package errors provides a categorized error type so that startup, load and
// write failures can be told apart and mapped onto process exit codes.
package errors

import (
	stderrors "errors"
	"fmt"
)

type Category string

const (
	CategoryConfig           Category = "config"
	CategoryPersistenceLoad  Category = "persistence_load"
	CategoryPersistenceWrite Category = "persistence_write"
	CategoryInternal         Category = "internal"
)

type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ContextFields carries structured context for an Error.
type ContextFields map[string]any

// Error is a structured error with category, retryability and context.
type Error struct {
	Category  Category      `json:"category"`
	Severity  Severity      `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

func New(category Category, severity Severity, message string) *Error {
	return &Error{Category: category, Severity: severity, Message: message}
}

func Wrap(err error, category Category, severity Severity, message string) *Error {
	return &Error{Category: category, Severity: severity, Message: message, Cause: err}
}

// Config errors abort startup before the engine or UI runs.
func Config(message string, cause error) *Error {
	return Wrap(cause, CategoryConfig, SeverityFatal, message)
}

func PersistenceLoad(checklist string, cause error) *Error {
	return Wrap(cause, CategoryPersistenceLoad, SeverityFatal, "cannot load checklist record").
		WithContext("checklist", checklist)
}

func PersistenceWrite(checklist string, attempts int, cause error) *Error {
	return Wrap(cause, CategoryPersistenceWrite, SeverityFatal, "cannot persist checklist record").
		WithContext("checklist", checklist).
		WithContext("attempts", attempts)
}

// CategoryOf walks the chain and returns the first category found, or
// CategoryInternal.
func CategoryOf(err error) Category {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Category
	}
	return CategoryInternal
}

func IsCategory(err error, category Category) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Category == category
}

// ExitCode maps an error onto the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if !stderrors.As(err, &e) {
		return 1
	}
	switch e.Category {
	case CategoryConfig:
		return 2
	case CategoryPersistenceLoad:
		return 3
	case CategoryPersistenceWrite:
		return 4
	default:
		return 1
	}
}
