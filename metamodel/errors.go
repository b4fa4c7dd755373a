package metamodel

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Library-related errors
	ErrLibraryNotFound = errors.New("foreign library not found")

	// Discovery-phase errors
	ErrTypeNotFound      = errors.New("type not found")
	ErrOperationNotFound = errors.New("operation not found")

	// Resolution errors
	ErrAmbiguousConcreteType = errors.New("ambiguous or unresolved concrete type")
	ErrNoConcreteType        = errors.New("no concrete implementation found")
	ErrInvalidConcreteHint   = errors.New("invalid concrete type hint")

	// Invocation-phase errors
	ErrInvocationFailed  = errors.New("invocation failed")
	ErrPersistenceFailed = errors.New("persistence failed")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")
)

// EngineError provides structured error information with context
// It implements the error interface and supports error wrapping
type EngineError struct {
	Op       string // Operation that failed (e.g., "registry.GetType")
	Kind     string // Error kind (e.g., "library", "type", "invocation")
	TypeName string // Optional foreign type name involved
	Message  string // Human-readable message
	Err      error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *EngineError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.TypeName != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.TypeName, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError creates a new EngineError
func NewEngineError(op, kind string, err error) *EngineError {
	return &EngineError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// IsNotFound checks if an error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTypeNotFound) ||
		errors.Is(err, ErrOperationNotFound) ||
		errors.Is(err, ErrLibraryNotFound)
}

// IsResolutionError checks if an error comes from concrete-type resolution
func IsResolutionError(err error) bool {
	return errors.Is(err, ErrAmbiguousConcreteType) ||
		errors.Is(err, ErrNoConcreteType) ||
		errors.Is(err, ErrInvalidConcreteHint)
}

// IsConfigurationError checks if an error is configuration-related
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingConfiguration)
}
