package session

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSetCookies(t *testing.T) {
	tests := []struct {
		name     string
		values   []string
		expected map[string]string
	}{
		{
			name:     "separate headers with attributes",
			values:   []string{"JSESSIONID=abc; Path=/; Secure; HttpOnly", "INGRESSCOOKIE=ing; Path=/"},
			expected: map[string]string{"JSESSIONID": "abc", "INGRESSCOOKIE": "ing"},
		},
		{
			name:     "comma-joined cookies with an Expires date",
			values:   []string{"JSESSIONID=abc; Expires=Wed, 21 Oct 2026 07:28:00 GMT; Path=/, INGRESSCOOKIE=\"ing\""},
			expected: map[string]string{"JSESSIONID": "abc", "INGRESSCOOKIE": "ing"},
		},
		{
			name:     "other cookies are ignored",
			values:   []string{"theme=dark", "lang=en; Path=/"},
			expected: map[string]string{},
		},
		{
			name:     "later value wins",
			values:   []string{"JSESSIONID=first", "JSESSIONID=second"},
			expected: map[string]string{"JSESSIONID": "second"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseSetCookies(tt.values))
		})
	}
}

func TestCSRFTokenFromHeader(t *testing.T) {
	canonical := http.Header{}
	canonical.Set(CSRFHeader, "abc")
	assert.Equal(t, "abc", CSRFTokenFromHeader(canonical))

	raw := http.Header{CSRFHeader: {"lower"}}
	assert.Equal(t, "lower", CSRFTokenFromHeader(raw))

	mixed := http.Header{"B6P-CSRF-TOKEN": {"upper"}}
	assert.Equal(t, "upper", CSRFTokenFromHeader(mixed))

	assert.Empty(t, CSRFTokenFromHeader(http.Header{}))
}

func TestSetCSRFHeader(t *testing.T) {
	h := http.Header{}
	h.Set(CSRFHeader, "old")
	setCSRFHeader(h, "new")

	assert.Equal(t, []string{"new"}, h[CSRFHeader])
	assert.Len(t, h, 1)
}

func TestOrigin(t *testing.T) {
	tests := map[string]string{
		"https://Example.COM/path?q=1":   "https://example.com",
		"https://example.com:443/a":      "https://example.com",
		"http://example.com:80":          "http://example.com",
		"https://example.com:8443/files": "https://example.com:8443",
	}

	for raw, expected := range tests {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, expected, Origin(u), raw)
	}
}

func TestSession_CookieHeader(t *testing.T) {
	assert.Equal(t, "JSESSIONID=a; INGRESSCOOKIE=", Session{JSessionID: "a"}.CookieHeader())
	assert.Equal(t, "JSESSIONID=a; INGRESSCOOKIE=b", Session{JSessionID: "a", IngressCookie: "b"}.CookieHeader())
}
