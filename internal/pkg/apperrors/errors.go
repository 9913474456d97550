package apperrors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// Resource errors
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// Storage errors
	ErrStorageFailure = errors.New("attachment storage failure")

	// Identity provider errors
	ErrUpstream         = errors.New("identity provider request failed")
	ErrAudienceMismatch = errors.New("token audience mismatch")
	ErrUnauthorized     = errors.New("unauthorized")
)

// Student errors
var (
	ErrStudentNotFound    = errors.New("student not found")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrRollNumberExists   = errors.New("roll number already assigned")
	ErrPhotographMissing  = errors.New("photograph is required")
)

// Category errors
var (
	ErrCategoryNotFound = errors.New("category not found")
)

// Session errors
var (
	ErrSessionActive = errors.New("user is already logged in")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewValidationError creates a new custom error for invalid input with a message
func NewValidationError(message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
	}
}

// NewStorageError wraps an I/O failure from the attachment store
func NewStorageError(message string, cause error) error {
	return &CustomError{
		Err:     ErrStorageFailure,
		Message: fmt.Sprintf("%s: %v", message, cause),
	}
}

// NewUpstreamError creates an error for a failed identity provider call,
// carrying the upstream response body for diagnostics.
func NewUpstreamError(message, body string) error {
	return &CustomError{
		Err:     ErrUpstream,
		Message: fmt.Sprintf("%s: %s", message, body),
	}
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
}

// Error implements the error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}
