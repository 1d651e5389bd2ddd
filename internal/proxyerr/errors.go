package proxyerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeMissingParameter indicates a required request input was absent
	ErrTypeMissingParameter ErrorType = iota
	// ErrTypeUpstreamUnavailable indicates the device answered with a non-200 status
	ErrTypeUpstreamUnavailable
	// ErrTypeTimeout indicates the description fetch exceeded its time bound
	ErrTypeTimeout
	// ErrTypeConversion indicates a malformed or unparseable description
	ErrTypeConversion
	// ErrTypeNotFound indicates an unknown device identifier
	ErrTypeNotFound
	// ErrTypeNetwork indicates any other transport-level failure
	ErrTypeNetwork
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeMissingParameter:
		return "Missing Parameter"
	case ErrTypeUpstreamUnavailable:
		return "Upstream Unavailable"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConversion:
		return "Conversion Failure"
	case ErrTypeNotFound:
		return "Not Found"
	case ErrTypeNetwork:
		return "Network Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is the error returned by fetch, conversion and lookup operations
type Error struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // Upstream HTTP status code (if applicable)
	URL        string    // Description location (if applicable)
	Err        error     // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// NewMissingParameterError reports an absent query parameter
func NewMissingParameterError(name string) *Error {
	return &Error{
		Type:    ErrTypeMissingParameter,
		Message: fmt.Sprintf("Missing '%s' parameter", name),
	}
}

// NewUpstreamError reports a non-200 answer from a device
func NewUpstreamError(location string, statusCode int) *Error {
	return &Error{
		Type:       ErrTypeUpstreamUnavailable,
		Message:    fmt.Sprintf("Device returned status %d", statusCode),
		StatusCode: statusCode,
		URL:        location,
	}
}

// NewTimeoutError reports a fetch that ran past its deadline
func NewTimeoutError(location string, err error) *Error {
	return &Error{
		Type:    ErrTypeTimeout,
		Message: "Timeout fetching device description",
		URL:     location,
		Err:     err,
	}
}

// NewConversionError reports a description that could not be converted
func NewConversionError(message string, err error) *Error {
	return &Error{
		Type:    ErrTypeConversion,
		Message: message,
		Err:     err,
	}
}

// NewNotFoundError reports an unknown device identifier
func NewNotFoundError(id string) *Error {
	return &Error{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("Device %s not found", id),
	}
}

// NewNetworkError reports a transport failure that is not a timeout
func NewNetworkError(location string, err error) *Error {
	return &Error{
		Type:    ErrTypeNetwork,
		Message: "Failed to fetch device description",
		URL:     location,
		Err:     err,
	}
}

// Classify turns a raw fetch error into an *Error. Timeouts are detected
// through os.IsTimeout and context.DeadlineExceeded, everything else is a
// network error. Errors that are already classified pass through.
func Classify(err error, location string) *Error {
	if err == nil {
		return nil
	}

	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}

	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return NewTimeoutError(location, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(location, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return NewTimeoutError(location, err)
	}

	return NewNetworkError(location, err)
}

func typeOf(err error) (ErrorType, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Type, true
	}
	return 0, false
}

// IsMissingParameter checks if an error is a missing-parameter error
func IsMissingParameter(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeMissingParameter
}

// IsUpstreamUnavailable checks if an error is an upstream status error
func IsUpstreamUnavailable(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeUpstreamUnavailable
}

// IsTimeout checks if an error is a fetch timeout
func IsTimeout(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeTimeout
}

// IsConversion checks if an error is a conversion failure
func IsConversion(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeConversion
}

// IsNotFound checks if an error is a not-found error
func IsNotFound(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeNotFound
}

// HTTPStatus maps an error to the status code the API answers with
func HTTPStatus(err error) int {
	t, ok := typeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch t {
	case ErrTypeMissingParameter:
		return http.StatusBadRequest
	case ErrTypeUpstreamUnavailable:
		return http.StatusBadGateway
	case ErrTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrTypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message for an error
func Message(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		if (pe.Type == ErrTypeConversion || pe.Type == ErrTypeNetwork) && pe.Err != nil {
			return fmt.Sprintf("%s: %v", pe.Message, pe.Err)
		}
		return pe.Message
	}
	return err.Error()
}
