package org

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"scriptsync/internal/session"
	"scriptsync/pkg/logging"
)

// TenantInfoPath is the endpoint answering with the U a host serves.
const TenantInfoPath = "/appinfo/u"

// maxUSize bounds how much of the tenant-info body is read.
const maxUSize = 1 << 10

// maxHostLen is the longest DNS name plus the longest port suffix.
const maxHostLen = 253 + len(":65535")

// hostPattern accepts dot-separated DNS labels with an optional port.
var hostPattern = regexp.MustCompile(`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?::[0-9]{1,5})?$`)

// Fetcher performs authenticated requests. *session.Manager implements it.
type Fetcher interface {
	Fetch(ctx context.Context, target string, opts session.RequestOptions) (*http.Response, error)
}

// Resolver queries one host for the U it serves.
type Resolver struct {
	fetcher Fetcher
	target  *url.URL
}

// NewResolver creates a resolver for the host of target.
func NewResolver(fetcher Fetcher, target *url.URL) *Resolver {
	u := *target
	return &Resolver{fetcher: fetcher, target: &u}
}

// ValidHost reports whether host is a syntactically valid host[:port].
func ValidHost(host string) bool {
	return len(host) <= maxHostLen && hostPattern.MatchString(host)
}

// ResolverFromHost validates host and creates an https resolver for it.
func ResolverFromHost(fetcher Fetcher, host string) (*Resolver, error) {
	if !ValidHost(host) {
		return nil, &InvalidHostError{Host: host}
	}
	return NewResolver(fetcher, &url.URL{Scheme: "https", Host: host, Path: "/"}), nil
}

// Host returns the host this resolver queries.
func (r *Resolver) Host() string {
	return r.target.Host
}

// GetU reads the U served by the host.
func (r *Resolver) GetU(ctx context.Context) (string, error) {
	lookup := *r.target
	lookup.Path = TenantInfoPath
	lookup.RawPath = ""
	lookup.RawQuery = ""
	lookup.Fragment = ""
	target := lookup.String()

	resp, err := r.fetcher.Fetch(ctx, target, session.RequestOptions{Method: http.MethodGet})
	if err != nil {
		return "", &LookupError{Target: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &LookupError{Target: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUSize))
	if err != nil {
		return "", &LookupError{Target: target, Err: err}
	}

	u := strings.TrimSpace(string(body))
	if u == "" {
		return "", &LookupError{Target: target, Err: fmt.Errorf("empty response")}
	}

	logging.Debug("OrgResolver", "Host %s serves U %s", r.target.Host, u)
	return u, nil
}

// VerifyU reports whether the host still serves u.
func (r *Resolver) VerifyU(ctx context.Context, u string) (bool, error) {
	got, err := r.GetU(ctx)
	if err != nil {
		return false, err
	}
	return got == u, nil
}
