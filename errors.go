package llmprovider

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common failure modes.
// These can be checked with errors.Is().
var (
	// ErrUnsupportedEndpoint indicates an adapter was asked for an endpoint kind
	// its vendor does not implement. This is a configuration error, never retried.
	ErrUnsupportedEndpoint = errors.New("llmprovider: unsupported endpoint")

	// ErrUnknownProvider indicates no adapter is registered for a provider or model.
	ErrUnknownProvider = errors.New("llmprovider: unknown provider")

	// ErrDeserialization indicates a complete response body could not be coerced
	// into any canonical result shape.
	ErrDeserialization = errors.New("llmprovider: cannot deserialize response")

	// ErrInvalidModel indicates the requested model is not supported by the provider.
	ErrInvalidModel = errors.New("llmprovider: invalid or unsupported model")

	// ErrInvalidAPIKey indicates the API key is missing, malformed, or unauthorized.
	ErrInvalidAPIKey = errors.New("llmprovider: invalid API key")

	// ErrRateLimited indicates the provider's rate limit has been exceeded.
	ErrRateLimited = errors.New("llmprovider: rate limit exceeded")

	// ErrInvalidRequest indicates the request parameters are invalid.
	ErrInvalidRequest = errors.New("llmprovider: invalid request")

	// ErrProviderUnavailable indicates the provider service is down or unreachable.
	ErrProviderUnavailable = errors.New("llmprovider: provider unavailable")

	// ErrStreamClosed is returned by Stream.Next after Close.
	ErrStreamClosed = errors.New("llmprovider: stream closed")
)

// EndpointError is returned by Adapter.BuildURL for endpoint kinds the vendor lacks.
type EndpointError struct {
	Provider ProviderID   // The adapter that was asked
	Endpoint EndpointKind // The requested endpoint kind
	Err      error        // Always ErrUnsupportedEndpoint
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("provider '%s' does not support endpoint '%s'", e.Provider, e.Endpoint)
}

func (e *EndpointError) Unwrap() error {
	return e.Err
}

// LookupError is returned by the Registry when nothing is registered for a key.
type LookupError struct {
	Key string // Provider ID or model name that missed
	Err error  // Always ErrUnknownProvider
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no provider registered for '%s'", e.Key)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// DecodeError represents a non-streaming body that could not be coerced into a Result.
type DecodeError struct {
	Provider ProviderID  // The adapter that decoded
	Shape    ResultShape // The shape the caller asked for
	Reason   string      // Human-readable explanation
	Err      error       // Underlying parse error, if any
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s result from '%s': %s (%v)", e.Shape, e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode %s result from '%s': %s", e.Shape, e.Provider, e.Reason)
}

// Unwrap exposes both ErrDeserialization and the underlying parse error.
func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrDeserialization, e.Err}
	}
	return []error{ErrDeserialization}
}

// ModelError represents an error related to model validation or availability.
type ModelError struct {
	Model    string // The model that was requested
	Provider string // The provider name
	Reason   string // Human-readable explanation
	Err      error  // Wrapped error (usually ErrInvalidModel)
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model '%s' for provider '%s': %s (%v)", e.Model, e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("model '%s' for provider '%s': %s", e.Model, e.Provider, e.Reason)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// ValidationError represents a value outside one of the canonical closed sets.
type ValidationError struct {
	Field  string // The field that failed validation
	Value  any    // The invalid value
	Reason string // Human-readable explanation
	Err    error  // Wrapped error (usually ErrInvalidRequest)
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed for '%s' (value: %v): %s (%v)", e.Field, e.Value, e.Reason, e.Err)
	}
	return fmt.Sprintf("validation failed for '%s' (value: %v): %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ProviderError represents an error reported by the vendor, either as a non-2xx
// HTTP response or as an in-band error event inside a stream.
type ProviderError struct {
	Provider   string // The provider name
	StatusCode int    // HTTP status code (0 for in-band stream errors)
	Type       string // Vendor error type, if reported
	Message    string // Error message from provider
	Retryable  bool   // Whether this error is potentially retryable
	Err        error  // Wrapped sentinel error (ErrRateLimited, ErrProviderUnavailable, etc.)
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider '%s' error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider '%s' error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a retry hint and sentinel.
func classifyStatus(status int) (bool, error) {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, ErrInvalidAPIKey
	case http.StatusTooManyRequests:
		return true, ErrRateLimited
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return false, ErrInvalidRequest
	case http.StatusNotFound:
		return false, ErrInvalidModel
	case http.StatusRequestTimeout:
		return true, ErrProviderUnavailable
	default:
		return status >= 500, ErrProviderUnavailable
	}
}

// classifyErrorType maps a vendor error type string (from an error envelope
// or in-band stream event) to a retry hint and sentinel.
func classifyErrorType(errType string) (bool, error) {
	switch errType {
	case "authentication_error", "permission_error", "invalid_api_key":
		return false, ErrInvalidAPIKey
	case "rate_limit_error", "rate_limit_exceeded":
		return true, ErrRateLimited
	case "invalid_request_error":
		return false, ErrInvalidRequest
	case "not_found_error", "model_not_found":
		return false, ErrInvalidModel
	case "overloaded_error", "api_error", "server_error":
		return true, ErrProviderUnavailable
	default:
		return false, ErrProviderUnavailable
	}
}

// IsRetryable checks if an error is potentially retryable.
// Returns true for rate limits, temporary unavailability, network errors, etc.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}

	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrProviderUnavailable)
}

// IsInvalidRequest checks if an error indicates a caller-side mistake.
// These errors are not retryable and require request or configuration changes.
func IsInvalidRequest(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidModel) ||
		errors.Is(err, ErrUnsupportedEndpoint) ||
		errors.Is(err, ErrUnknownProvider) {
		return true
	}

	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsAuthError checks if an error is related to authentication.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrInvalidAPIKey) {
		return true
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		// HTTP 401/403 indicate auth issues
		return providerErr.StatusCode == http.StatusUnauthorized || providerErr.StatusCode == http.StatusForbidden
	}

	return false
}
