package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a failed call to a proxy
type Error struct {
	// StatusCode is the HTTP status, or 0 when the proxy was not reached
	StatusCode int

	// Message is the proxy's error message, or a local description
	Message string

	// Retryable reports whether repeating the call may succeed
	Retryable bool

	// Err is the underlying transport error, if any
	Err error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("proxy returned %d: %s", e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newNetworkError reports a transport failure; these are always retried
func newNetworkError(message string, err error) *Error {
	return &Error{Message: message, Retryable: true, Err: err}
}

// newStatusError reports a non-2xx answer. Only 503 is retried: every
// other status is a decision the proxy already made about the device.
func newStatusError(statusCode int, message string) *Error {
	return &Error{
		StatusCode: statusCode,
		Message:    message,
		Retryable:  statusCode == http.StatusServiceUnavailable,
	}
}

// newDecodeError reports an unreadable response body
func newDecodeError(err error) *Error {
	return &Error{Message: "failed to decode proxy response", Err: err}
}

// IsRetryable reports whether err is worth retrying
func IsRetryable(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Retryable
}

// IsNotFound reports whether the proxy answered 404
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.StatusCode
	}
	return 0
}
