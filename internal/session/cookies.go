package session

import (
	"net/http"
	"strings"
)

// headerValues collects every value of name, matching keys case-insensitively
// so headers stored under non-canonical keys are found too.
func headerValues(h http.Header, name string) []string {
	var values []string
	for k, vs := range h {
		if strings.EqualFold(k, name) {
			values = append(values, vs...)
		}
	}
	return values
}

// CSRFTokenFromHeader returns the CSRF token carried by h, or "".
func CSRFTokenFromHeader(h http.Header) string {
	if v := strings.TrimSpace(h.Get(CSRFHeader)); v != "" {
		return v
	}
	for _, v := range headerValues(h, CSRFHeader) {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// parseSetCookies extracts the JSESSIONID and INGRESSCOOKIE values from
// Set-Cookie header values. Attributes are ignored, and values joined by
// commas into one header line are split apart. Later cookies win.
func parseSetCookies(values []string) map[string]string {
	found := make(map[string]string, 2)
	for _, line := range values {
		for _, part := range strings.Split(line, ";") {
			for _, pair := range strings.Split(part, ",") {
				name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
				if !ok {
					continue
				}
				name = strings.TrimSpace(name)
				if name == CookieJSessionID || name == CookieIngress {
					found[name] = strings.Trim(strings.TrimSpace(value), `"`)
				}
			}
		}
	}
	return found
}

// setCSRFHeader replaces any CSRF header in h with token under the lower-case key.
func setCSRFHeader(h http.Header, token string) {
	for k := range h {
		if strings.EqualFold(k, CSRFHeader) {
			delete(h, k)
		}
	}
	h[CSRFHeader] = []string{token}
}
