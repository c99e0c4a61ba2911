package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"scriptsync/internal/credentials"
	"scriptsync/internal/kvstore"
)

// fakeClock is a settable clock shared by a test and its manager.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// contentServer imitates the remote content server's login, token and API endpoints.
type contentServer struct {
	*httptest.Server

	mu sync.Mutex

	logins      int
	tokenCalls  int
	apiCalls    int
	lastAuth    string
	lastCookie  string
	lastCSRF    string
	loginDelay  time.Duration
	loginStatus int

	// loginCookies overrides the Set-Cookie values sent on login; nil means default.
	loginCookies []string
	// forbidAPI is how many upcoming API calls are rejected with rejectStatus.
	forbidAPI int
	// rejectStatus defaults to 403.
	rejectStatus int
	// tokenStatus, when set, is returned by /csrf-token instead of a token.
	tokenStatus int
	// emptyToken makes /csrf-token return an empty body.
	emptyToken bool
}

func newContentServer(t *testing.T) *contentServer {
	t.Helper()
	cs := &contentServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(cs.handle))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *contentServer) handle(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case LoginPath:
		cs.mu.Lock()
		cs.logins++
		n := cs.logins
		cs.lastAuth = r.Header.Get("Authorization")
		delay, status, cookies := cs.loginDelay, cs.loginStatus, cs.loginCookies
		cs.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		if cookies == nil {
			cookies = []string{
				fmt.Sprintf("JSESSIONID=sess-%d; Path=/; Secure; HttpOnly", n),
				"INGRESSCOOKIE=ing-1; Path=/",
			}
		}
		for _, c := range cookies {
			w.Header().Add("Set-Cookie", c)
		}
		w.WriteHeader(http.StatusOK)

	case CSRFTokenPath:
		cs.mu.Lock()
		cs.tokenCalls++
		n := cs.tokenCalls
		status, empty := cs.tokenStatus, cs.emptyToken
		cs.lastCookie = r.Header.Get("Cookie")
		cs.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		if empty {
			return
		}
		fmt.Fprintf(w, "tok-%d\n", n)

	default:
		cs.mu.Lock()
		cs.apiCalls++
		cs.lastCookie = r.Header.Get("Cookie")
		cs.lastCSRF = r.Header.Get(CSRFHeader)
		forbid, reject := cs.forbidAPI > 0, cs.rejectStatus
		if forbid {
			cs.forbidAPI--
		}
		cs.mu.Unlock()

		if forbid {
			if reject == 0 {
				reject = http.StatusForbidden
			}
			w.WriteHeader(reject)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Cookie"), "JSESSIONID=sess-") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set(CSRFHeader, "rotated")
		fmt.Fprint(w, "ok")
	}
}

// serverStats is a point-in-time copy of what the content server observed.
type serverStats struct {
	logins     int
	tokenCalls int
	apiCalls   int
	lastAuth   string
	lastCookie string
	lastCSRF   string
}

func (cs *contentServer) stats() serverStats {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return serverStats{
		logins:     cs.logins,
		tokenCalls: cs.tokenCalls,
		apiCalls:   cs.apiCalls,
		lastAuth:   cs.lastAuth,
		lastCookie: cs.lastCookie,
		lastCSRF:   cs.lastCSRF,
	}
}

func (cs *contentServer) set(fn func(cs *contentServer)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	fn(cs)
}

// recordingNotifier captures notices.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type testEnv struct {
	server   *contentServer
	clock    *fakeClock
	kv       *kvstore.Memory
	notifier *recordingNotifier
	manager  *Manager
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{
		server:   newContentServer(t),
		clock:    newFakeClock(),
		kv:       kvstore.NewMemory(),
		notifier: &recordingNotifier{},
	}

	base := []Option{
		WithHTTPClient(env.server.Client()),
		WithClock(env.clock.Now),
		WithNotifier(env.notifier),
		WithRetryDelay(time.Millisecond),
	}
	env.manager = NewManager(env.kv, credentials.NewStatic("alice", "pw"), append(base, opts...)...)
	if err := env.manager.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return env
}

func (env *testEnv) url(path string) string {
	return env.server.URL + path
}

func (env *testEnv) origin() string {
	_, origin, _ := ParseTarget(env.server.URL)
	return origin
}
