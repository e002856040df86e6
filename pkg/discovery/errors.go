package discovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrValidation indicates a caller supplied a value of the wrong shape.
	ErrValidation = errors.New("validation error")

	// ErrParameterValidation indicates a parameter violates a method's schema.
	ErrParameterValidation = errors.New("parameter validation error")

	// ErrTransmission indicates a discovery document could not be fetched or parsed,
	// or a request could not be transmitted.
	ErrTransmission = errors.New("transmission error")

	// ErrClient indicates the server answered with a 4xx status.
	ErrClient = errors.New("client error")

	// ErrServer indicates the server answered with a 5xx status.
	ErrServer = errors.New("server error")
)

// Common static errors that can be wrapped with context.
var (
	ErrConfigRequired        = errors.New("config is required")
	ErrDiscoveryRootRequired = errors.New("discovery root is required")
	ErrMethodRequired        = errors.New("an API method or method id is required")
	ErrMethodNotFound        = errors.New("method not found")
	ErrAPINotFound           = errors.New("API not found")
	ErrNoPreferredVersion    = errors.New("no preferred version")
	ErrInvalidIdentifier     = errors.New("invalid identifier")
	ErrMissingRequiredField  = errors.New("missing required field")
	ErrUnexpectedStatus      = errors.New("unexpected status")
	ErrCacheKeyNotFound      = errors.New("key not found")
	ErrCacheEntryExpired     = errors.New("entry expired")
	ErrNotJSON               = errors.New("response is not JSON")
)

// ValidationError reports a value of the wrong shape or type supplied by the
// caller. It is always detected before any I/O.
type ValidationError struct {
	// Field names the argument that failed validation.
	Field string
	// Value is the offending value (may be nil).
	Value interface{}
	// Message describes the failure.
	Message string
	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := "validation error"
	if e.Field != "" {
		msg += " in " + e.Field
	}

	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}

	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ParameterValidationError reports a parameter that violates the method's
// declared schema: missing required, enum or pattern mismatch, wrong type, or
// unknown name.
type ParameterValidationError struct {
	Method    string
	Parameter string
	Value     interface{}
	Message   string
}

// Error implements the error interface.
func (e *ParameterValidationError) Error() string {
	msg := "parameter validation error"
	if e.Method != "" {
		msg += " for " + e.Method
	}

	if e.Parameter != "" {
		msg += fmt.Sprintf(": parameter %q", e.Parameter)
	}

	if e.Message != "" {
		msg += " " + e.Message
	}

	return msg
}

// Is reports whether target matches this error type.
func (e *ParameterValidationError) Is(target error) bool {
	return target == ErrParameterValidation
}

// TransmissionError reports a discovery document that could not be fetched or
// parsed, or a request that never received an HTTP response.
type TransmissionError struct {
	URI        string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *TransmissionError) Error() string {
	msg := "transmission error"
	if e.URI != "" {
		msg += " for " + e.URI
	}

	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}

	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}

	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *TransmissionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *TransmissionError) Is(target error) bool {
	return target == ErrTransmission
}

// ClientError is returned by the strict execution variants when the server
// answered with a 4xx (or otherwise non-2xx, non-5xx) status.
type ClientError struct {
	Result *Result
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	return statusErrorMessage("client error", e.Result)
}

// Is reports whether target matches this error type.
func (e *ClientError) Is(target error) bool {
	return target == ErrClient
}

// StatusCode returns the HTTP status of the failed call.
func (e *ClientError) StatusCode() int {
	return e.Result.StatusCode()
}

// ServerError is returned by the strict execution variants when the server
// answered with a 5xx status.
type ServerError struct {
	Result *Result
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return statusErrorMessage("server error", e.Result)
}

// Is reports whether target matches this error type.
func (e *ServerError) Is(target error) bool {
	return target == ErrServer
}

// StatusCode returns the HTTP status of the failed call.
func (e *ServerError) StatusCode() int {
	return e.Result.StatusCode()
}

func statusErrorMessage(kind string, result *Result) string {
	if result == nil || result.Response == nil {
		return kind
	}

	msg := fmt.Sprintf("%s: %d %s", kind, result.Response.StatusCode, http.StatusText(result.Response.StatusCode))
	if result.Request != nil {
		msg = fmt.Sprintf("%s: %s %s returned %d", kind, result.Request.HTTPMethod, result.Request.URI, result.Response.StatusCode)
	}

	if apiErr := result.APIError(); apiErr != nil {
		msg += ": " + apiErr.Error()
	}

	return msg
}

// APIError is the error envelope returned by discovery-described APIs.
type APIError struct {
	Code    int           `json:"code"    yaml:"code"`
	Message string        `json:"message" yaml:"message"`
	Status  string        `json:"status,omitempty" yaml:"status,omitempty"`
	Errors  []ErrorDetail `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// ErrorDetail is a single entry of an APIError.
type ErrorDetail struct {
	Domain  string `json:"domain"  yaml:"domain"`
	Reason  string `json:"reason"  yaml:"reason"`
	Message string `json:"message" yaml:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" && len(e.Errors) > 0 {
		return fmt.Sprintf("%s (code: %d)", e.Errors[0].Message, e.Code)
	}

	return fmt.Sprintf("%s (code: %d)", e.Message, e.Code)
}

// FirstReason returns the reason of the first error detail, or "".
func (e *APIError) FirstReason() string {
	if len(e.Errors) > 0 {
		return e.Errors[0].Reason
	}

	return ""
}

// ResponseError is the top-level JSON error body.
type ResponseError struct {
	Error *APIError `json:"error"`
}

// ParseResponseError parses an error response from JSON.
func ParseResponseError(data []byte) (*APIError, error) {
	var errResp ResponseError

	err := json.Unmarshal(data, &errResp)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal response error: %w", err)
	}

	return errResp.Error, nil
}

// IsNotFound checks if the error is a strict-call failure with status 404.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized checks if the error is a strict-call failure with status 401.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsForbidden checks if the error is a strict-call failure with status 403.
func IsForbidden(err error) bool {
	return hasStatus(err, http.StatusForbidden)
}

func hasStatus(err error, status int) bool {
	clientErr := &ClientError{}
	if errors.As(err, &clientErr) {
		return clientErr.StatusCode() == status
	}

	serverErr := &ServerError{}
	if errors.As(err, &serverErr) {
		return serverErr.StatusCode() == status
	}

	return false
}
