package org

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"scriptsync/internal/kvstore"
	"scriptsync/internal/session"
)

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

// fakeFetcher answers tenant-info and helper requests from in-memory tables.
type fakeFetcher struct {
	mu sync.Mutex

	// tenants maps host → U served at TenantInfoPath.
	tenants map[string]string
	// failing hosts return a transport error.
	failing map[string]bool
	// helper maps U → orgUrl returned by the helper endpoint.
	helper map[string]string

	calls []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		tenants: make(map[string]string),
		failing: make(map[string]bool),
		helper:  make(map[string]string),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, target string, _ session.RequestOptions) (*http.Response, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, target)

	if f.failing[parsed.Host] {
		return nil, errors.New("connection refused")
	}

	if parsed.Path == "/helper" {
		orgURL, ok := f.helper[parsed.Query().Get("u")]
		if !ok {
			return respond(http.StatusNotFound, ""), nil
		}
		return respond(http.StatusOK, `{"orgUrl":"`+orgURL+`"}`), nil
	}

	if parsed.Path != TenantInfoPath {
		return respond(http.StatusNotFound, ""), nil
	}
	u, ok := f.tenants[parsed.Host]
	if !ok {
		return respond(http.StatusNotFound, ""), nil
	}
	return respond(http.StatusOK, u+"\n"), nil
}

func (f *fakeFetcher) set(fn func(f *fakeFetcher)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

type cacheEnv struct {
	cache   *Cache
	fetcher *fakeFetcher
	clock   *fakeClock
	kv      kvstore.Store
}

func newCacheEnv(t *testing.T, opts ...CacheOption) *cacheEnv {
	t.Helper()
	env := &cacheEnv{
		fetcher: newFakeFetcher(),
		clock:   newFakeClock(),
		kv:      kvstore.NewMemory(),
	}
	opts = append([]CacheOption{
		WithCacheClock(env.clock.Now),
		WithHelperURL("https://helper.example.com/helper"),
	}, opts...)
	env.cache = NewCache(env.kv, env.fetcher, opts...)
	require.NoError(t, env.cache.Init(context.Background()))
	return env
}

// hostsByU flattens a snapshot into U → host names.
func hostsByU(snapshot map[string][]Element) map[string][]string {
	out := make(map[string][]string, len(snapshot))
	for u, els := range snapshot {
		for _, el := range els {
			out[u] = append(out[u], el.Host)
		}
	}
	return out
}
