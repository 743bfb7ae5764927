// Package errors provides the typed errors surfaced by checkpoint operations.
//
// Callers match on concrete types or use the stdlib errors helpers:
//
//	var nf *errors.NotFoundError
//	if stderrors.As(err, &nf) { ... }
package errors

import "fmt"

// ConfigError indicates an invalid checkpointer configuration.
// It is always raised at construction time, never deferred.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Message)
}

// IOError wraps a filesystem or storage failure during save/remove.
type IOError struct {
	Op   string // "save", "remove", "load"
	Path string
	Err  error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("checkpoint %s failed for %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// NotFoundError indicates a load on a path with no checkpoint.
type NotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Path != "" {
		return "checkpoint not found: " + e.Path
	}
	return "checkpoint not found"
}

// Is reports whether target is also a NotFoundError, so that
// errors.Is(err, &NotFoundError{}) matches regardless of path.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// DecodeError indicates a checkpoint exists but its content is corrupt
// or incompatible with the current format.
type DecodeError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("checkpoint decode failed for %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
