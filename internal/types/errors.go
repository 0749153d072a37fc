package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants. Handlers and services MUST use these
// constants instead of hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationInvalidParameter ErrorCode = "validation_invalid_parameter"
	ErrCodeValidationInvalidLimit     ErrorCode = "validation_invalid_limit"
	ErrCodeValidationMissingField     ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidJSON      ErrorCode = "validation_invalid_json"

	// Per-parameter forecast failures. These never escape the orchestrator as
	// request-level errors; they are serialized into the parameter slot of the
	// combined report.
	ErrCodeInsufficientData      ErrorCode = "insufficient_data"
	ErrCodeModelInvocationFailed ErrorCode = "model_invocation_failed"
	ErrCodeNormalizationFailed   ErrorCode = "normalization_failed"
	ErrCodeModelNotLoaded        ErrorCode = "model_not_loaded"

	// Not Found (404)
	ErrCodeNotFoundParameter ErrorCode = "not_found_parameter"

	// Conflict (409)
	ErrCodeConflictModelReload ErrorCode = "conflict_model_reload_in_progress"

	// Internal/Upstream (500/502/503)
	ErrCodeInternalDB          ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected  ErrorCode = "internal_unexpected_error"
	ErrCodeNoModelsLoaded      ErrorCode = "internal_no_models_loaded"
	ErrCodeUpstreamData        ErrorCode = "upstream_data_unavailable"
	ErrCodeUpstreamNoRows      ErrorCode = "upstream_no_rows"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict
	case c == ErrCodeNoModelsLoaded:
		return http.StatusServiceUnavailable
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type. All domain and handler
// errors should be expressed as AppError to enable consistent error
// formatting, HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError carrying structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}
