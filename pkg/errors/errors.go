// Package errors defines unified error types for routing service operations.
// All provider-specific failures are mapped to these standard error types.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// RouterError represents a standardized error from a routing service.
// It contains all necessary information for error handling, logging and retry
// decisions.
type RouterError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Router     string `json:"router"`
	Retryable  bool   `json:"-"`
}

// Error implements the error interface.
func (e *RouterError) Error() string {
	return fmt.Sprintf("[%s] %s (router=%s, code=%d)",
		e.Type, e.Message, e.Router, e.StatusCode)
}

// Common error types as constants for consistency.
const (
	TypeOverQueryLimit = "over_query_limit_error"
	TypeAPI            = "api_error"
	TypeServer         = "server_error"
	TypeTimeout        = "timeout_error"
	TypeValidation     = "validation_error"
	TypeJSONParse      = "json_parse_error"
)

// ErrNotSupported is returned when a router does not offer the requested
// operation (e.g. isochrones on OSRM).
var ErrNotSupported = stderrors.New("operation not supported")

// NotSupported wraps ErrNotSupported with the router and operation names.
func NotSupported(router, operation string) error {
	return fmt.Errorf("%s: %s: %w", router, operation, ErrNotSupported)
}

// NewOverQueryLimitError creates a rate limit error (429).
func NewOverQueryLimitError(router, message string) *RouterError {
	return &RouterError{
		StatusCode: http.StatusTooManyRequests,
		Message:    message,
		Type:       TypeOverQueryLimit,
		Router:     router,
		Retryable:  true,
	}
}

// NewAPIError creates an error for an API-level rejection (4xx), e.g. an
// invalid parameter combination or no route found.
func NewAPIError(router string, statusCode int, message string) *RouterError {
	return &RouterError{
		StatusCode: statusCode,
		Message:    message,
		Type:       TypeAPI,
		Router:     router,
		Retryable:  false,
	}
}

// NewServerError creates an error for a provider-side failure (5xx).
func NewServerError(router string, statusCode int, message string) *RouterError {
	return &RouterError{
		StatusCode: statusCode,
		Message:    message,
		Type:       TypeServer,
		Router:     router,
		Retryable:  true,
	}
}

// NewTimeoutError creates a timeout error (408).
func NewTimeoutError(router, message string) *RouterError {
	return &RouterError{
		StatusCode: http.StatusRequestTimeout,
		Message:    message,
		Type:       TypeTimeout,
		Router:     router,
		Retryable:  true,
	}
}

// NewValidationError creates an error for invalid caller-side arguments,
// raised before any request is sent.
func NewValidationError(router, message string) *RouterError {
	return &RouterError{
		StatusCode: http.StatusBadRequest,
		Message:    message,
		Type:       TypeValidation,
		Router:     router,
		Retryable:  false,
	}
}

// NewJSONParseError creates an error for an undecodable provider response.
func NewJSONParseError(router, message string) *RouterError {
	return &RouterError{
		StatusCode: 0,
		Message:    message,
		Type:       TypeJSONParse,
		Router:     router,
		Retryable:  false,
	}
}

// IsRetryable reports whether the error may succeed on a subsequent attempt.
func IsRetryable(err error) bool {
	var re *RouterError
	if stderrors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// RouterNotFoundError is returned when a router name cannot be resolved
// through the registry.
type RouterNotFoundError struct {
	Name      string
	Available []string
}

// Error implements the error interface.
func (e *RouterNotFoundError) Error() string {
	return fmt.Sprintf("unknown router %q; options are: %s",
		e.Name, strings.Join(e.Available, ", "))
}
