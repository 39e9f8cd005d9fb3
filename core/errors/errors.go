// Package errors defines the error kinds shared across the formations
// packages. Callers test for a kind with Is against the sentinels and use As
// to reach the typed details.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is matched by ValidationError and, unless it wraps a
	// more specific cause, ParseError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorageConflict means formation numbering broke: a segment key was
	// already taken, or the store allocated a number the engine did not.
	ErrStorageConflict = errors.New("storage conflict")
	// ErrCorruptRender means stored segments cannot be reassembled.
	ErrCorruptRender = errors.New("corrupt formation data")
	// ErrRegistrySealed is returned by Intern once decomposition has begun.
	ErrRegistrySealed = errors.New("word registry is sealed")
)

// NotFoundError names the missing thing: a word, a book, a run.
type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return "no such " + e.Resource
	}
	return fmt.Sprintf("no such %s: %q", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError rejects a value before any work is done with it. Field is
// a config key ("decompose.workers") or a parameter name ("letters"); Value,
// when set, is the rejected input.
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	field := e.Field
	if field == "" {
		field = "input"
	}
	if e.Value != "" {
		return fmt.Sprintf("invalid %s %q: %s", field, e.Value, e.Message)
	}
	return fmt.Sprintf("invalid %s: %s", field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError wraps a file system failure with the operation and path.
type IOError struct {
	Operation string
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Operation, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError reports input in a known format ("OSIS", "LexicalIndex",
// "reference") that could not be read.
type ParseError struct {
	Format  string
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	where := e.Format
	if e.Path != "" {
		where += " " + e.Path
	}
	return fmt.Sprintf("parse %s: %s", where, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// StorageConflictError locates a segment write that collided, or a formation
// the store numbered differently from the engine.
type StorageConflictError struct {
	BaseWordID      int64
	FormationNumber int
	Position        int
	Err             error
}

func (e *StorageConflictError) Error() string {
	msg := fmt.Sprintf("storage conflict at word %d, formation %d, position %d",
		e.BaseWordID, e.FormationNumber, e.Position)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap matches both ErrStorageConflict and the driver error.
func (e *StorageConflictError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStorageConflict}
	}
	return []error{ErrStorageConflict, e.Err}
}

// CorruptRenderError locates the inner segment that could not be spliced
// into the text already built for its formation.
type CorruptRenderError struct {
	Word            string
	FormationNumber int
	Position        int
	Reason          string
}

func (e *CorruptRenderError) Error() string {
	return fmt.Sprintf("formation %d of %q, position %d: %s",
		e.FormationNumber, e.Word, e.Position, e.Reason)
}

func (e *CorruptRenderError) Unwrap() error {
	return ErrCorruptRender
}

func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func NewIO(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

func NewParse(format, path, message string) *ParseError {
	return &ParseError{Format: format, Path: path, Message: message}
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
