// Package credentials supplies the Authorization header and login form body
// used when the session manager has to establish a new session for an origin.
package credentials

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoCredentials is returned when no credentials are registered for a flag.
var ErrNoCredentials = errors.New("no credentials configured")

// Provider supplies login material. The flag selects one of several credential
// sets; the empty flag is the default set.
type Provider interface {
	AuthHeaderValue(ctx context.Context, flag string) (string, error)
	AuthLoginBodyValue(ctx context.Context, flag string) (string, error)
}

// Login form field names posted to the login endpoint.
const (
	FormFieldUsername = "username"
	FormFieldPassword = "password"
)

// Credential is a username/password pair.
type Credential struct {
	Username string
	Password string
}

// Static serves fixed username/password credentials, keyed by flag.
type Static struct {
	mu    sync.RWMutex
	creds map[string]Credential
}

// NewStatic creates a provider whose default flag maps to username/password.
func NewStatic(username, password string) *Static {
	s := &Static{creds: make(map[string]Credential)}
	s.Set("", Credential{Username: username, Password: password})
	return s
}

// Set registers credentials for flag, replacing any previous set.
func (s *Static) Set(flag string, c Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[flag] = c
}

func (s *Static) lookup(flag string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.creds[flag]
	if !ok || c.Username == "" {
		return Credential{}, fmt.Errorf("%w for flag %q", ErrNoCredentials, flag)
	}
	return c, nil
}

// AuthHeaderValue returns an HTTP Basic authorization value.
func (s *Static) AuthHeaderValue(_ context.Context, flag string) (string, error) {
	c, err := s.lookup(flag)
	if err != nil {
		return "", err
	}
	raw := c.Username + ":" + c.Password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw)), nil
}

// AuthLoginBodyValue returns the url-encoded login form.
func (s *Static) AuthLoginBodyValue(_ context.Context, flag string) (string, error) {
	c, err := s.lookup(flag)
	if err != nil {
		return "", err
	}
	return url.Values{
		FormFieldUsername: {c.Username},
		FormFieldPassword: {c.Password},
	}.Encode(), nil
}

// TokenSource authenticates with bearer tokens from an oauth2.TokenSource.
// The login body is empty; the server authenticates from the header alone.
type TokenSource struct {
	src oauth2.TokenSource
}

// NewTokenSource wraps src. The source is made reuse-safe so refreshed tokens are cached.
func NewTokenSource(src oauth2.TokenSource) *TokenSource {
	return &TokenSource{src: oauth2.ReuseTokenSource(nil, src)}
}

// NewStaticToken serves a fixed bearer token.
func NewStaticToken(accessToken string) *TokenSource {
	return NewTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
}

func (t *TokenSource) AuthHeaderValue(_ context.Context, _ string) (string, error) {
	tok, err := t.src.Token()
	if err != nil {
		return "", fmt.Errorf("failed to obtain token: %w", err)
	}
	if !tok.Valid() {
		return "", fmt.Errorf("%w: token is expired or empty", ErrNoCredentials)
	}
	return tok.Type() + " " + tok.AccessToken, nil
}

func (t *TokenSource) AuthLoginBodyValue(_ context.Context, _ string) (string, error) {
	return "", nil
}
