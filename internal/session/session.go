package session

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTTL is how long a session stays valid after it was last touched.
	DefaultTTL = 5 * time.Minute

	// DefaultFirstSweepDelay is the delay before the first housekeeping sweep.
	DefaultFirstSweepDelay = 5 * time.Second

	// DefaultRetryDelay is the fixed pause between CSRF retries.
	DefaultRetryDelay = 1 * time.Second

	// DefaultCSRFRetries is the retry budget callers normally pass to CSRFFetch.
	DefaultCSRFRetries = 2

	// DefaultHTTPTimeout is the timeout of the default HTTP client.
	DefaultHTTPTimeout = 30 * time.Second
)

// Fixed paths and names of the content server protocol.
const (
	LoginPath     = "/shared/home.jsp"
	CSRFTokenPath = "/csrf-token"

	// CSRFHeader is sent and read in lower case; some transports treat the
	// casing as significant.
	CSRFHeader = "b6p-csrf-token"

	CookieJSessionID = "JSESSIONID"
	CookieIngress    = "INGRESSCOOKIE"
)

// Session is the state kept for one origin.
type Session struct {
	// Origin is scheme://host[:port], the map key.
	Origin string `json:"origin"`

	// JSessionID is the server session token. Empty until login succeeds.
	JSessionID string `json:"jsessionId,omitempty"`

	// IngressCookie is the optional load balancer routing cookie.
	IngressCookie string `json:"ingressCookie,omitempty"`

	// LastCSRFToken is the most recently observed anti-CSRF token.
	LastCSRFToken string `json:"lastCsrfToken,omitempty"`

	// LastTouched is the time of the last successful use.
	LastTouched time.Time `json:"lastTouched"`

	// Fresh is true for a placeholder that has not processed a real response yet.
	Fresh bool `json:"fresh"`
}

// Valid reports whether s can be used for a request at now.
func (s Session) Valid(now time.Time, ttl time.Duration) bool {
	return s.JSessionID != "" && now.Sub(s.LastTouched) < ttl
}

// Expired reports whether s was last touched ttl or longer before now.
func (s Session) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastTouched) >= ttl
}

// CookieHeader renders the Cookie request header for s.
func (s Session) CookieHeader() string {
	return CookieJSessionID + "=" + s.JSessionID + "; " + CookieIngress + "=" + s.IngressCookie
}

// Origin returns the scheme://host[:port] of u, lower-cased and without default ports.
func Origin(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "https" && port == "443") || (scheme == "http" && port == "80") {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}
	return scheme + "://" + host
}

// ParseTarget parses an absolute request URL and returns it with its origin.
func ParseTarget(target string) (*url.URL, string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL %q: %w", target, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, "", fmt.Errorf("invalid URL %q: scheme and host are required", target)
	}
	return u, Origin(u), nil
}

// normalizeOrigin accepts an origin or any absolute URL on it.
func normalizeOrigin(origin string) string {
	if _, o, err := ParseTarget(origin); err == nil {
		return o
	}
	return origin
}
