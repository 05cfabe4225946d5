package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies pipeline errors. Per-file and per-row problems are
// recovered locally; the type tells the caller which recovery applies.
type ErrorType string

const (
	// ErrTypeSchema marks a file whose required columns could not be
	// resolved. The file is skipped, the run continues.
	ErrTypeSchema ErrorType = "SCHEMA_UNRESOLVED"

	// ErrTypeParsing marks unreadable or malformed input.
	ErrTypeParsing ErrorType = "PARSING"

	// ErrTypeValidation marks data that violates dataset invariants.
	ErrTypeValidation ErrorType = "VALIDATION"

	// ErrTypeEmptyDataset marks a run whose cleaned dataset came out
	// empty. Triggers the demo fallback, not a run failure.
	ErrTypeEmptyDataset ErrorType = "EMPTY_DATASET"

	ErrTypeStorage  ErrorType = "STORAGE"
	ErrTypeConfig   ErrorType = "CONFIG"
	ErrTypeNotFound ErrorType = "NOT_FOUND"
)

// AppError is the application error carrying a type, a message and an
// optional cause and context.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair to the error.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error.
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// IsType reports whether err is (or wraps) an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// Helper constructors for the common types.

func NewSchemaError(message string, cause error) *AppError {
	return NewAppError(ErrTypeSchema, message, cause)
}

func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

func NewValidationError(message string, cause error) *AppError {
	return NewAppError(ErrTypeValidation, message, cause)
}

func NewEmptyDatasetError(message string) *AppError {
	return NewAppError(ErrTypeEmptyDataset, message, nil)
}

func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}
