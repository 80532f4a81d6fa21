package promstore

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// TransportError represents a connection-level failure: DNS, refused
// connection, reset, or any other error before an HTTP response arrived.
type TransportError struct {
	// Op is the remote call that failed ("catalog", "delete_series", ...)
	Op string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("remote store %s failed: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// TimeoutError represents a remote call that exceeded the configured
// timeout. It is a distinct failure class, not a generic transport error.
type TimeoutError struct {
	// Op is the remote call that timed out
	Op string

	// Timeout is the configured call timeout
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("remote store %s timed out after %s", e.Op, e.Timeout)
}

// StatusError represents a non-2xx HTTP response from the remote store.
type StatusError struct {
	// Op is the remote call that failed
	Op string

	// StatusCode is the HTTP status code returned
	StatusCode int

	// Body is the response body, truncated for logging
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("remote store %s returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsTimeout reports whether err is a remote-call timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsNotFound reports whether err is a 404/no-data response. The engine
// treats these as success with zero effect.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// IsClientRejection reports whether the remote store rejected the
// request as malformed (a bad selector, for example).
func IsClientRejection(err error) bool {
	var se *StatusError
	return errors.As(err, &se) &&
		se.StatusCode >= 400 && se.StatusCode < 500 && se.StatusCode != http.StatusNotFound
}
