package session

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// HTTPResponseError reports a non-OK status on a login or CSRF token request.
type HTTPResponseError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPResponseError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d", e.Method, e.URL, e.StatusCode)
}

// UnauthorizedError reports a 401/403 response on an established session.
type UnauthorizedError struct {
	Origin     string
	StatusCode int
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized (status %d) for %s", e.StatusCode, e.Origin)
}

// SessionIDMissingError reports a Set-Cookie response without a JSESSIONID,
// or a login that did not leave a usable session behind.
type SessionIDMissingError struct {
	Origin string
}

func (e *SessionIDMissingError) Error() string {
	return fmt.Sprintf("no JSESSIONID received for %s", e.Origin)
}

// SessionDataMissingError reports a cookie-less response for an origin with no session.
type SessionDataMissingError struct {
	Origin string
}

func (e *SessionDataMissingError) Error() string {
	return fmt.Sprintf("no session data stored for %s", e.Origin)
}

// CSRFTokenNotFoundError reports that no CSRF token was available for a protected request.
type CSRFTokenNotFoundError struct {
	Origin string
}

func (e *CSRFTokenNotFoundError) Error() string {
	return fmt.Sprintf("no CSRF token available for %s", e.Origin)
}

// RequestTimeoutError reports a cancelled or timed-out request. It is never retried.
type RequestTimeoutError struct {
	URL string
	Err error
}

func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("request to %s timed out: %v", e.URL, e.Err)
}

func (e *RequestTimeoutError) Unwrap() error {
	return e.Err
}

// RetryAttemptsExhaustedError wraps the last error of a CSRF-protected request
// once every retry has been spent.
type RetryAttemptsExhaustedError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *RetryAttemptsExhaustedError) Error() string {
	return fmt.Sprintf("request to %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *RetryAttemptsExhaustedError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err carries an UnauthorizedError.
func IsUnauthorized(err error) bool {
	var target *UnauthorizedError
	return errors.As(err, &target)
}

// IsTimeout reports whether err stems from cancellation or a transport timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isSessionConsistency reports the server contract violations that are never retried.
func isSessionConsistency(err error) bool {
	var idMissing *SessionIDMissingError
	var dataMissing *SessionDataMissingError
	return errors.As(err, &idMissing) || errors.As(err, &dataMissing)
}

// isRetryable reports the errors CSRFFetch recovers from by resetting the session.
func isRetryable(err error) bool {
	var httpErr *HTTPResponseError
	var csrfErr *CSRFTokenNotFoundError
	var netErr net.Error
	return errors.As(err, &httpErr) || errors.As(err, &csrfErr) || errors.As(err, &netErr)
}
