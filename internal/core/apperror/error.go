// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes following domain-driven design
const (
	// Infrastructure errors (5xx)
	CodeInternal  = "INTERNAL_ERROR"
	CodeDatabase  = "DATABASE_ERROR"
	CodeTransient = "TRANSIENT_STORE_ERROR"

	// Validation errors (400)
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidLabel        = "INVALID_LABEL"
	CodeInvalidPrefix       = "INVALID_PREFIX"
	CodeInvalidStartValue   = "INVALID_START_VALUE"
	CodeInvalidSequence     = "INVALID_SEQUENCE"
	CodeInvalidBatchSize    = "INVALID_BATCH_SIZE"
	CodeBatchSizeExceeded   = "BATCH_SIZE_EXCEEDED"
	CodeMalformedIdentifier = "MALFORMED_IDENTIFIER"

	// Business rule violations (422)
	CodeStartValueTooLarge = "START_VALUE_TOO_LARGE"
	CodeSequenceExhausted  = "SEQUENCE_EXHAUSTED"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound            = "NOT_FOUND"
	CodeGeneratorNotDefined = "GENERATOR_NOT_DEFINED"

	// Conflict (409)
	CodeDuplicate      = "DUPLICATE_ENTRY"
	CodeAlreadyDefined = "ALREADY_DEFINED"
)

// AppError is the standard error type for the service.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (label, limits, offending values)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidInput creates a validation error with a specific code (400)
func NewInvalidInput(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewTransient wraps a store failure the caller may retry (lock timeout, deadlock).
func NewTransient(err error) *AppError {
	return &AppError{
		Code:       CodeTransient,
		Message:    "Store is temporarily unable to complete the operation, retry later",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Functional id generator errors ---

// NewAlreadyDefined is returned when a generator for the label already exists (409).
func NewAlreadyDefined(label string) *AppError {
	return &AppError{
		Code:       CodeAlreadyDefined,
		Message:    fmt.Sprintf("There is already a functional id generator defined for label %s", label),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"label": label},
	}
}

// NewGeneratorNotDefined is returned when no generator exists for the label (404).
func NewGeneratorNotDefined(label string) *AppError {
	return &AppError{
		Code:       CodeGeneratorNotDefined,
		Message:    fmt.Sprintf("No functional id generator is defined for label %s", label),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"label": label},
	}
}

// NewInvalidPrefix is returned for an empty or whitespace-only prefix (400).
func NewInvalidPrefix() *AppError {
	return NewInvalidInput(CodeInvalidPrefix, "Prefix may not be empty").
		WithDetail("field", "prefix")
}

// NewStartValueTooLarge is returned when fewer than minFree values remain above start (422).
func NewStartValueTooLarge(start int64, minFree int64) *AppError {
	return NewBusinessRule(CodeStartValueTooLarge,
		fmt.Sprintf("The start value %d is too big, there must be at least %d positions left to generate functional ids from", start, minFree)).
		WithDetail("startFrom", start).
		WithDetail("minFreeSpace", minFree)
}

// NewBatchSizeExceeded is returned when a batch is larger than the allowed maximum (400).
func NewBatchSizeExceeded(size, max int64) *AppError {
	return NewInvalidInput(CodeBatchSizeExceeded,
		fmt.Sprintf("The batch size cannot be bigger than %d", max)).
		WithDetail("batchSize", size).
		WithDetail("maxBatchSize", max)
}

// NewSequenceExhausted is returned when allocation would overflow the sequence (422).
func NewSequenceExhausted(label string) *AppError {
	return NewBusinessRule(CodeSequenceExhausted,
		"The sequence is exhausted, it cannot grow beyond the maximum 64-bit value").
		WithDetail("label", label)
}

// NewMalformedIdentifier is returned when an encoded identifier cannot be decoded (400).
func NewMalformedIdentifier(value, reason string) *AppError {
	return NewInvalidInput(CodeMalformedIdentifier, "Malformed identifier: "+reason).
		WithDetail("value", value)
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsDuplicate checks if error is CodeDuplicate
func IsDuplicate(err error) bool {
	return HasCode(err, CodeDuplicate)
}

// IsTransient checks if error is CodeTransient
func IsTransient(err error) bool {
	return HasCode(err, CodeTransient)
}
