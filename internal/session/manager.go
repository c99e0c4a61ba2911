package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"scriptsync/internal/credentials"
	"scriptsync/internal/kvstore"
	"scriptsync/pkg/logging"
)

// RequestOptions describes the request a caller wants sent on an authenticated session.
// The body is kept as bytes so the request can be rebuilt for retries.
type RequestOptions struct {
	Method string
	Header http.Header
	Body   []byte
}

// Notifier receives informational notices meant for the user, such as a
// session being re-established after the server rejected it.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// logNotifier is the default Notifier; it writes notices to the log.
type logNotifier struct{}

func (logNotifier) Notify(_ context.Context, message string) {
	logging.Info("Session", "%s", message)
}

// Manager performs authenticated requests against any number of origins.
type Manager struct {
	store      *Store
	creds      credentials.Provider
	httpClient *http.Client
	notifier   Notifier
	metrics    *Metrics
	now        func() time.Time

	credentialFlag  string
	ttl             time.Duration
	firstSweepDelay time.Duration
	retryDelay      time.Duration

	// loginGroup collapses concurrent logins for the same origin into one request.
	loginGroup singleflight.Group

	lifecycleMu sync.Mutex
	cancelSweep context.CancelFunc
	sweepDone   chan struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		m.httpClient = c
	}
}

// WithNotifier sets the observer for informational notices.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) {
		m.notifier = n
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithTTL sets the session validity window.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithRetryDelay sets the pause between CSRF retries.
func WithRetryDelay(d time.Duration) Option {
	return func(m *Manager) {
		m.retryDelay = d
	}
}

// WithFirstSweepDelay sets the delay before the first housekeeping sweep.
func WithFirstSweepDelay(d time.Duration) Option {
	return func(m *Manager) {
		m.firstSweepDelay = d
	}
}

// WithCredentialFlag selects the credential set passed to the provider on login.
func WithCredentialFlag(flag string) Option {
	return func(m *Manager) {
		m.credentialFlag = flag
	}
}

// NewManager creates a Manager persisting sessions to kv and logging in with creds.
// Call Init before use to load persisted sessions.
func NewManager(kv kvstore.Store, creds credentials.Provider, opts ...Option) *Manager {
	m := &Manager{
		store:           NewStore(kv),
		creds:           creds,
		httpClient:      &http.Client{Timeout: DefaultHTTPTimeout},
		notifier:        logNotifier{},
		now:             time.Now,
		ttl:             DefaultTTL,
		firstSweepDelay: DefaultFirstSweepDelay,
		retryDelay:      DefaultRetryDelay,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Init loads persisted sessions.
func (m *Manager) Init(ctx context.Context) error {
	return m.store.Load(ctx)
}

// Sessions returns a snapshot of every stored session.
func (m *Manager) Sessions() []Session {
	return m.store.All()
}

// TTL returns the session validity window.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// HasValidSession reports whether origin has a session usable right now.
func (m *Manager) HasValidSession(origin string) bool {
	sess, ok := m.store.Get(normalizeOrigin(origin))
	return ok && sess.Valid(m.now(), m.ttl)
}

// ClearSession removes the session for origin. Clearing an absent session is a no-op.
func (m *Manager) ClearSession(ctx context.Context, origin string) error {
	origin = normalizeOrigin(origin)
	removed, err := m.store.Delete(ctx, origin)
	if err != nil {
		return err
	}
	if removed {
		logging.Debug("Session", "Cleared session for %s", origin)
	}
	return nil
}

// Fetch sends the request on an authenticated session for the target's origin,
// logging in first when no valid session exists. The caller must close the
// response body. A 401 or 403 answer is returned as *UnauthorizedError, not as
// a response.
func (m *Manager) Fetch(ctx context.Context, target string, opts RequestOptions) (*http.Response, error) {
	u, origin, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}

	for loggedIn := false; ; loggedIn = true {
		if sess, ok := m.store.Get(origin); ok && sess.Valid(m.now(), m.ttl) {
			return m.send(ctx, u.String(), origin, sess, opts)
		}
		if loggedIn {
			return nil, &SessionIDMissingError{Origin: origin}
		}
		if err := m.login(ctx, origin); err != nil {
			return nil, err
		}
	}
}

// send performs one request with the session cookies attached.
func (m *Manager) send(ctx context.Context, target, origin string, sess Session, opts RequestOptions) (*http.Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range opts.Header {
		req.Header[k] = append([]string(nil), vs...)
	}
	req.Header.Set("Cookie", sess.CookieHeader())

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, target, err)
	}
	m.metrics.request(resp.StatusCode)

	if err := m.processResponse(ctx, origin, resp); err != nil {
		drainAndClose(resp)
		return nil, err
	}
	return resp, nil
}

// login establishes a session for origin. Concurrent callers for the same
// origin share one login request. The shared request is detached from any
// single caller's cancellation; each caller stops waiting when its own ctx ends.
func (m *Manager) login(ctx context.Context, origin string) error {
	ch := m.loginGroup.DoChan(origin, func() (interface{}, error) {
		loginCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.loginTimeout())
		defer cancel()
		return nil, m.doLogin(loginCtx, origin)
	})

	select {
	case res := <-ch:
		if res.Shared {
			logging.Debug("Session", "Joined in-flight login for %s", origin)
		}
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("login to %s abandoned: %w", origin, ctx.Err())
	}
}

func (m *Manager) loginTimeout() time.Duration {
	if m.httpClient.Timeout > 0 {
		return m.httpClient.Timeout
	}
	return DefaultHTTPTimeout
}

func (m *Manager) doLogin(ctx context.Context, origin string) error {
	header, err := m.creds.AuthHeaderValue(ctx, m.credentialFlag)
	if err != nil {
		return fmt.Errorf("failed to get credentials for %s: %w", origin, err)
	}
	form, err := m.creds.AuthLoginBodyValue(ctx, m.credentialFlag)
	if err != nil {
		return fmt.Errorf("failed to get credentials for %s: %w", origin, err)
	}

	loginURL := origin + LoginPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Authorization", header)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	logging.Debug("Session", "Logging in to %s", origin)
	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.metrics.login("error")
		return fmt.Errorf("login to %s failed: %w", origin, err)
	}
	defer drainAndClose(resp)

	if resp.StatusCode >= http.StatusBadRequest {
		m.metrics.login("rejected")
		return &HTTPResponseError{
			Method:     http.MethodPost,
			URL:        loginURL,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	if err := m.processResponse(ctx, origin, resp); err != nil {
		m.metrics.login("invalid")
		return err
	}

	m.metrics.login("success")
	logging.Info("Session", "Logged in to %s", origin)
	return nil
}

// processResponse updates the session for origin from resp's cookies and CSRF header.
func (m *Manager) processResponse(ctx context.Context, origin string, resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &UnauthorizedError{Origin: origin, StatusCode: resp.StatusCode}
	}

	now := m.now()
	token := CSRFTokenFromHeader(resp.Header)
	prev, hasPrev := m.store.Get(origin)

	if setCookies := headerValues(resp.Header, "Set-Cookie"); len(setCookies) > 0 {
		cookies := parseSetCookies(setCookies)

		jsessionID := cookies[CookieJSessionID]
		if jsessionID == "" {
			return &SessionIDMissingError{Origin: origin}
		}

		ingress, ok := cookies[CookieIngress]
		if !ok && hasPrev {
			ingress = prev.IngressCookie
		}
		if token == "" && hasPrev {
			token = prev.LastCSRFToken
		}

		if hasPrev && prev.JSessionID != jsessionID {
			logging.Debug("Session", "New session %s for %s", logging.TruncateSecret(jsessionID), origin)
		}

		return m.store.Put(ctx, Session{
			Origin:        origin,
			JSessionID:    jsessionID,
			IngressCookie: ingress,
			LastCSRFToken: token,
			LastTouched:   now,
			Fresh:         false,
		})
	}

	found, err := m.store.Update(ctx, origin, func(s *Session) {
		s.LastTouched = now
		s.Fresh = false
		if token != "" {
			s.LastCSRFToken = token
		}
	})
	if err != nil {
		return err
	}
	if !found {
		return &SessionDataMissingError{Origin: origin}
	}
	return nil
}

// drainAndClose discards what is left of the body so the connection can be reused.
func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
