// Package errors defines the structured error type shared by the SDK and
// the error taxonomy used for run result reporting.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies an AppError for reporting and retry decisions.
type ErrorType string

// Supported error types
const (
	ValidationFailed ErrorType = "validation_failed"
	NotFound         ErrorType = "not_found"
	Unauthorized     ErrorType = "unauthorized"
	PermissionDenied ErrorType = "permission_denied"
	BadRequest       ErrorType = "bad_request"
	ParseFailed      ErrorType = "parse_failed"
	Internal         ErrorType = "internal"
)

var (
	// ErrNotConnected indicates that the client is not connected to NATS
	ErrNotConnected = errors.New("not connected to NATS")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrNoResponse indicates that no response was received for a request
	ErrNoResponse = errors.New("no response received")

	// ErrNodeTypeNotRegistered indicates a run referenced an unknown node type
	ErrNodeTypeNotRegistered = errors.New("node type not registered")

	// ErrUnknownOperation indicates a run referenced a resource/operation pair
	// the node does not implement
	ErrUnknownOperation = errors.New("unknown resource/operation")
)

// AppError represents a structured SDK error.
type AppError struct {
	// ID is an optional identifier correlating the error to an execution
	ID string

	// Type classifies the error
	Type ErrorType

	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error, if any
	Err error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(id string, t ErrorType, message, code string, err error) *AppError {
	return &AppError{ID: id, Type: t, Code: code, Message: message, Err: err}
}

// NewValidationError creates an error for invalid or missing configuration
func NewValidationError(id, message, code string, err error) *AppError {
	return newAppError(id, ValidationFailed, message, code, err)
}

// NewNotFoundError creates an error for a missing remote resource
func NewNotFoundError(id, message, code string, err error) *AppError {
	return newAppError(id, NotFound, message, code, err)
}

// NewUnauthorizedError creates an error for failed authentication
func NewUnauthorizedError(id, message, code string, err error) *AppError {
	return newAppError(id, Unauthorized, message, code, err)
}

// NewPermissionError creates an error for insufficient permissions
func NewPermissionError(id, message, code string, err error) *AppError {
	return newAppError(id, PermissionDenied, message, code, err)
}

// NewBadRequestError creates an error for a request the remote API rejected
func NewBadRequestError(id, message, code string, err error) *AppError {
	return newAppError(id, BadRequest, message, code, err)
}

// NewParseError creates an error for an unparseable response body
func NewParseError(id, message, code string, err error) *AppError {
	return newAppError(id, ParseFailed, message, code, err)
}

// NewInternalError creates an error for transport and other internal failures
func NewInternalError(id, message, code string, err error) *AppError {
	return newAppError(id, Internal, message, code, err)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsNotConnected checks if an error is a not connected error
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}
