// FilePath: internal/errors/errors.go
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Error types
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeBinding     ErrorType = "binding"
	ErrorTypeFormula     ErrorType = "formula"
	ErrorTypeFetch       ErrorType = "fetch"
	ErrorTypePersistence ErrorType = "persistence"
	ErrorTypeInvariant   ErrorType = "invariant"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeInternal    ErrorType = "internal"
)

// APIError represents a structured API error
type APIError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Code      int       `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	Details   any       `json:"details,omitempty"`
	retryable bool      // fetch errors only: transport/5xx may be retried by the poll scheduler
	err       error     // Internal error for logging
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the wrapped internal error
func (e *APIError) Unwrap() error {
	return e.err
}

// Retryable reports whether the poll scheduler may retry the failed operation
func (e *APIError) Retryable() bool {
	return e.retryable
}

// WithRequestID adds a request ID to the error
func (e *APIError) WithRequestID(id string) *APIError {
	e.RequestID = id
	return e
}

// WithDetails adds additional details to the error
func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

// NewValidationError creates a new validation error
func NewValidationError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeValidation,
		Message: msg,
		Code:    http.StatusBadRequest,
		err:     err,
	}
}

// NewBindingError creates an error for an invalid or stale widget data binding.
// Binding errors are recovered locally by prompting re-configuration and must
// never abort widget rendering.
func NewBindingError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeBinding,
		Message: msg,
		Code:    http.StatusUnprocessableEntity,
		err:     err,
	}
}

// NewFormulaError creates an error for a malformed or rejected transform
// formula. Callers fall back to the raw value.
func NewFormulaError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeFormula,
		Message: msg,
		Code:    http.StatusBadRequest,
		err:     err,
	}
}

// NewFetchError creates an error for a failed collaborator fetch. A statusCode
// of 0 means a transport failure. Transport and 5xx failures are retryable,
// 4xx failures surface immediately.
func NewFetchError(msg string, err error, statusCode int) *APIError {
	code := http.StatusBadGateway
	if statusCode >= 400 && statusCode < 500 {
		code = statusCode
	}
	return &APIError{
		Type:      ErrorTypeFetch,
		Message:   msg,
		Code:      code,
		retryable: statusCode == 0 || statusCode >= 500,
		err:       err,
	}
}

// NewPersistenceError creates an error for a layout save/load failure
func NewPersistenceError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypePersistence,
		Message: msg,
		Code:    http.StatusInternalServerError,
		err:     err,
	}
}

// NewInvariantError creates an error for an operation that would violate a
// store invariant, e.g. deleting the default layout
func NewInvariantError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeInvariant,
		Message: msg,
		Code:    http.StatusConflict,
		err:     err,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: msg,
		Code:    http.StatusNotFound,
		err:     err,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(msg string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeInternal,
		Message: msg,
		Code:    http.StatusInternalServerError,
		err:     err,
	}
}

// AsAPIError unwraps err into an *APIError if one is in the chain
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound checks if an error is a NotFound error
func IsNotFound(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Type == ErrorTypeNotFound
	}
	return false
}

// IsValidation checks if an error is a Validation error
func IsValidation(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Type == ErrorTypeValidation
	}
	return false
}

// IsInvariant checks if an error is an Invariant error
func IsInvariant(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Type == ErrorTypeInvariant
	}
	return false
}

// IsRetryableFetch checks if an error is a fetch error the poll scheduler may retry
func IsRetryableFetch(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Type == ErrorTypeFetch && apiErr.retryable
	}
	return false
}
