package errors

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

// APIError is the structured payload returned by the read-only API.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer for chi/render.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates a new APIError.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details.
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

var (
	ErrInvalidRequest = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrNotFound       = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrInternalServer = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
)

// FromError maps application errors onto API errors. Unknown errors become
// an opaque 500 so internals never leak through the collaborator contract.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrTypeNotFound:
			return NewWithDetails(http.StatusNotFound, "NOT_FOUND", appErr.Message, string(appErr.Type))
		case ErrTypeValidation, ErrTypeSchema:
			return NewWithDetails(http.StatusUnprocessableEntity, string(appErr.Type), appErr.Message, nil)
		default:
			return New(http.StatusInternalServerError, string(appErr.Type), appErr.Message)
		}
	}

	return ErrInternalServer
}
