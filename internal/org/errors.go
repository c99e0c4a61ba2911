package org

import (
	"errors"
	"fmt"
	"strings"
)

// ErrHelperNotConfigured is returned by GetAnyBaseURL when the cache has no
// host for a U and no helper endpoint is configured.
var ErrHelperNotConfigured = errors.New("org helper endpoint is not configured")

// LookupError reports a failed tenant lookup against a host or the helper endpoint.
type LookupError struct {
	Target     string
	StatusCode int
	Err        error
}

func (e *LookupError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("org lookup at %s failed with status %d", e.Target, e.StatusCode)
	}
	return fmt.Sprintf("org lookup at %s failed: %v", e.Target, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// InvalidHostError reports a host name rejected before any network call.
type InvalidHostError struct {
	Host string
}

func (e *InvalidHostError) Error() string {
	return fmt.Sprintf("invalid host %q", e.Host)
}

// NotFoundError reports a cache-only lookup for a host that is not cached.
type NotFoundError struct {
	Host string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("host %s is not in the org cache", e.Host)
}

// CacheIntegrityError reports a host cached under more than one U.
type CacheIntegrityError struct {
	Host string
	Us   []string
}

func (e *CacheIntegrityError) Error() string {
	return fmt.Sprintf("org cache is invalid: host %s is cached under %s", e.Host, strings.Join(e.Us, ", "))
}
