package errors

import (
	"context"
	stdErrors "errors"
	"net"
	"strings"
)

// Error code constants
const (
	ErrorCodeUnknown       = "UNKNOWN_ERROR"
	ErrorCodeTimeout       = "TIMEOUT_ERROR"
	ErrorCodeNetwork       = "NETWORK_ERROR"
	ErrorCodeValidation    = "VALIDATION_ERROR"
	ErrorCodeNotFound      = "NOT_FOUND_ERROR"
	ErrorCodeUnauthorized  = "UNAUTHORIZED_ERROR"
	ErrorCodeForbidden     = "FORBIDDEN_ERROR"
	ErrorCodeBadRequest    = "BAD_REQUEST_ERROR"
	ErrorCodeParse         = "PARSE_ERROR"
	ErrorCodeInternal      = "INTERNAL_ERROR"
	ErrorCodeConfiguration = "CONFIGURATION_ERROR"
)

// CategorizeError maps an error to a standardized error code
func CategorizeError(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		switch appErr.Type {
		case ValidationFailed:
			return ErrorCodeValidation
		case NotFound:
			return ErrorCodeNotFound
		case Unauthorized:
			return ErrorCodeUnauthorized
		case PermissionDenied:
			return ErrorCodeForbidden
		case BadRequest:
			return ErrorCodeBadRequest
		case ParseFailed:
			return ErrorCodeParse
		case Internal:
			return ErrorCodeInternal
		}
	}

	if stdErrors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeTimeout
	}

	var netErr net.Error
	if stdErrors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorCodeTimeout
		}
		return ErrorCodeNetwork
	}

	// Fall back to message patterns
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "timed out") {
		return ErrorCodeTimeout
	}

	if strings.Contains(errMsg, "network") || strings.Contains(errMsg, "connection") {
		return ErrorCodeNetwork
	}

	if strings.Contains(errMsg, "validation") || strings.Contains(errMsg, "invalid") {
		return ErrorCodeValidation
	}

	if strings.Contains(errMsg, "not found") {
		return ErrorCodeNotFound
	}

	if strings.Contains(errMsg, "unauthorized") || strings.Contains(errMsg, "authentication") {
		return ErrorCodeUnauthorized
	}

	if strings.Contains(errMsg, "forbidden") || strings.Contains(errMsg, "permission") {
		return ErrorCodeForbidden
	}

	if strings.Contains(errMsg, "parse") || strings.Contains(errMsg, "unmarshal") {
		return ErrorCodeParse
	}

	if strings.Contains(errMsg, "configuration") || strings.Contains(errMsg, "config") {
		return ErrorCodeConfiguration
	}

	return ErrorCodeUnknown
}

// IsRetryable determines if an error is transient and should be retried
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if stdErrors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if stdErrors.As(err, &netErr) {
		// Network errors are generally retryable
		return true
	}

	switch CategorizeError(err) {
	case ErrorCodeTimeout:
		return true
	case ErrorCodeNetwork:
		return true
	case ErrorCodeInternal:
		return true // Internal errors might be transient
	default:
		// Validation, auth, parse and configuration errors won't change on retry
		return false
	}
}
