package org

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"scriptsync/internal/kvstore"
	"scriptsync/internal/session"
	"scriptsync/pkg/logging"
)

const (
	// StorageKey is the kvstore key holding the persisted cache.
	StorageKey = "orgCache"

	// DefaultMaxElementAge is how long a host may go unaccessed before eviction.
	DefaultMaxElementAge = 3 * 24 * time.Hour

	// DefaultCleanupInterval is the period of the eviction sweep.
	DefaultCleanupInterval = 24 * time.Hour

	// DefaultValidationConcurrency bounds parallel hosts checked by HardValidateAll.
	DefaultValidationConcurrency = 4

	// maxHelperResponseSize bounds the helper endpoint's JSON body.
	maxHelperResponseSize = 64 << 10
)

// Element is one host believed to serve a U.
type Element struct {
	Host       string    `json:"host"`
	LastAccess time.Time `json:"lastAccess"`
}

// UResolver answers which U a host serves. *Resolver implements it.
type UResolver interface {
	GetU(ctx context.Context) (string, error)
	VerifyU(ctx context.Context, u string) (bool, error)
}

// ResolverFactory builds a resolver for a bare or cached host.
type ResolverFactory func(host string) (UResolver, error)

// Cache maps U → hosts, persisted write-through to a kvstore.Store.
//
// The mutex guards the map only; it is never held across network calls, so
// concurrent operations may interleave between lookups and writes.
type Cache struct {
	mu      sync.Mutex
	entries map[string][]Element

	persistMu sync.Mutex
	kv        kvstore.Store

	fetcher     Fetcher
	resolverFor ResolverFactory
	helperURL   string
	metrics     *Metrics
	now         func() time.Time

	maxElementAge   time.Duration
	cleanupInterval time.Duration
	concurrency     int

	lifecycleMu sync.Mutex
	cancelLoop  context.CancelFunc
	loopDone    chan struct{}
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithHelperURL sets the endpoint answering with any host of a U.
func WithHelperURL(helperURL string) CacheOption {
	return func(c *Cache) {
		c.helperURL = helperURL
	}
}

// WithResolverFactory replaces how resolvers are built for hosts.
func WithResolverFactory(f ResolverFactory) CacheOption {
	return func(c *Cache) {
		c.resolverFor = f
	}
}

// WithCacheClock replaces time.Now, for tests.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// WithMaxElementAge sets the eviction age.
func WithMaxElementAge(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.maxElementAge = d
	}
}

// WithCleanupInterval sets the eviction sweep period.
func WithCleanupInterval(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.cleanupInterval = d
	}
}

// WithValidationConcurrency bounds parallel host checks in HardValidateAll.
func WithValidationConcurrency(n int) CacheOption {
	return func(c *Cache) {
		c.concurrency = n
	}
}

// WithCacheMetrics sets the Prometheus collectors.
func WithCacheMetrics(m *Metrics) CacheOption {
	return func(c *Cache) {
		c.metrics = m
	}
}

// NewCache creates an empty cache. Call Init to load persisted entries.
func NewCache(kv kvstore.Store, fetcher Fetcher, opts ...CacheOption) *Cache {
	c := &Cache{
		entries:         make(map[string][]Element),
		kv:              kv,
		fetcher:         fetcher,
		now:             time.Now,
		maxElementAge:   DefaultMaxElementAge,
		cleanupInterval: DefaultCleanupInterval,
		concurrency:     DefaultValidationConcurrency,
	}
	c.resolverFor = func(host string) (UResolver, error) {
		return ResolverFromHost(c.fetcher, host)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Init loads the persisted cache and evicts stale hosts.
func (c *Cache) Init(ctx context.Context) error {
	var persisted map[string][]Element
	ok, err := c.kv.Get(ctx, StorageKey, &persisted)
	if err != nil {
		return fmt.Errorf("failed to load org cache: %w", err)
	}

	c.mu.Lock()
	c.entries = make(map[string][]Element, len(persisted))
	if ok {
		for u, els := range persisted {
			if len(els) > 0 {
				c.entries[u] = els
			}
		}
	}
	c.mu.Unlock()

	_, err = c.CleanupOldEntries(ctx)
	return err
}

// Snapshot returns a deep copy of the cache.
func (c *Cache) Snapshot() map[string][]Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Cache) snapshotLocked() map[string][]Element {
	out := make(map[string][]Element, len(c.entries))
	for u, els := range c.entries {
		out[u] = append([]Element(nil), els...)
	}
	return out
}

// FindU returns the U served by the host of urlOrHost. Cached answers are
// returned directly; otherwise, unless cacheOnly is set, the host is asked
// and the answer cached.
func (c *Cache) FindU(ctx context.Context, urlOrHost string, cacheOnly bool) (string, error) {
	target, err := targetOf(urlOrHost)
	if err != nil {
		return "", err
	}
	host := target.Host

	c.mu.Lock()
	u, found := c.touchLocked(host)
	c.mu.Unlock()

	if found {
		c.metrics.lookup("hit")
		return u, c.persist(ctx)
	}
	if cacheOnly {
		c.metrics.lookup("miss")
		return "", &NotFoundError{Host: host}
	}

	resolver, err := c.resolverForTarget(urlOrHost, target)
	if err != nil {
		return "", err
	}
	u, err = resolver.GetU(ctx)
	if err != nil {
		return "", err
	}

	c.metrics.lookup("resolved")
	logging.Info("OrgCache", "Resolved host %s to U %s", host, u)
	if err := c.AddHost(ctx, u, host); err != nil {
		return "", err
	}
	return u, nil
}

// touchLocked bumps the LastAccess of host and returns its U.
func (c *Cache) touchLocked(host string) (string, bool) {
	for _, u := range sortedKeys(c.entries) {
		els := c.entries[u]
		for i := range els {
			if els[i].Host == host {
				els[i].LastAccess = c.now()
				return u, true
			}
		}
	}
	return "", false
}

// AddHost records that the host of urlOrHost serves u. A host cached under a
// different U is moved, so a host never belongs to two Us.
func (c *Cache) AddHost(ctx context.Context, u, urlOrHost string) error {
	if u == "" {
		return fmt.Errorf("cannot cache host for an empty U")
	}
	host, err := hostOf(urlOrHost)
	if err != nil {
		return err
	}

	if err := c.CleanDuplicates(ctx, false); err != nil {
		return err
	}

	now := c.now()
	c.mu.Lock()
	for other, els := range c.entries {
		if other == u {
			continue
		}
		if kept := withoutHost(els, host); len(kept) != len(els) {
			logging.Warn("OrgCache", "Host %s moved from U %s to U %s", host, other, u)
			c.setLocked(other, kept)
		}
	}

	els := c.entries[u]
	updated := false
	for i := range els {
		if els[i].Host == host {
			els[i].LastAccess = now
			updated = true
			break
		}
	}
	if !updated {
		c.entries[u] = append(els, Element{Host: host, LastAccess: now})
	}
	c.mu.Unlock()

	return c.persist(ctx)
}

// GetAnyBaseURL returns an https base URL of some host serving u, asking the
// helper endpoint when none is cached. Duplicate hosts make it fail with a
// CacheIntegrityError.
func (c *Cache) GetAnyBaseURL(ctx context.Context, u string) (*url.URL, error) {
	if err := c.CleanDuplicates(ctx, true); err != nil {
		return nil, err
	}

	c.mu.Lock()
	var host string
	if els := c.entries[u]; len(els) > 0 {
		host = els[0].Host
	}
	c.mu.Unlock()

	if host != "" {
		return baseURL(host), nil
	}

	host, err := c.lookupAnyHost(ctx, u)
	if err != nil {
		return nil, err
	}
	if err := c.AddHost(ctx, u, host); err != nil {
		return nil, err
	}
	return baseURL(host), nil
}

// helperResponse is the JSON body of the helper endpoint.
type helperResponse struct {
	OrgURL string `json:"orgUrl"`
}

// lookupAnyHost asks the helper endpoint for any host serving u.
func (c *Cache) lookupAnyHost(ctx context.Context, u string) (string, error) {
	if c.helperURL == "" {
		return "", &LookupError{Target: "helper", Err: ErrHelperNotConfigured}
	}

	helper, err := url.Parse(c.helperURL)
	if err != nil {
		return "", &LookupError{Target: c.helperURL, Err: err}
	}
	query := helper.Query()
	query.Set("u", u)
	helper.RawQuery = query.Encode()
	target := helper.String()

	resp, err := c.fetcher.Fetch(ctx, target, session.RequestOptions{
		Method: http.MethodGet,
		Header: http.Header{"Accept": {"application/json"}},
	})
	if err != nil {
		return "", &LookupError{Target: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &LookupError{Target: target, StatusCode: resp.StatusCode}
	}

	var body helperResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxHelperResponseSize)).Decode(&body); err != nil {
		return "", &LookupError{Target: target, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	host, err := hostOf(body.OrgURL)
	if err != nil {
		return "", &LookupError{Target: target, Err: err}
	}
	logging.Debug("OrgCache", "Helper returned host %s for U %s", host, u)
	return host, nil
}

// CleanDuplicates looks for hosts cached under more than one U. With
// throwIfDuplicateExists it returns a CacheIntegrityError for the first one;
// otherwise every U holding a duplicated host is removed and the scan goes on.
func (c *Cache) CleanDuplicates(ctx context.Context, throwIfDuplicateExists bool) error {
	changed := false

	c.mu.Lock()
	for {
		host, us := c.firstDuplicateLocked()
		if host == "" {
			break
		}
		if throwIfDuplicateExists {
			c.mu.Unlock()
			logging.Error("OrgCache", nil, "Host %s is cached under multiple Us: %v", host, us)
			return &CacheIntegrityError{Host: host, Us: us}
		}

		logging.Warn("OrgCache", "Host %s was cached under Us %v; dropping all of them", host, us)
		for _, u := range us {
			c.metrics.removed("duplicate", len(c.entries[u]))
			delete(c.entries, u)
		}
		changed = true
	}
	c.mu.Unlock()

	if !changed {
		return nil
	}
	return c.persist(ctx)
}

// firstDuplicateLocked returns the first host found under two or more Us,
// with every U that holds it.
func (c *Cache) firstDuplicateLocked() (string, []string) {
	seen := make(map[string]string)
	for _, u := range sortedKeys(c.entries) {
		for _, el := range c.entries[u] {
			owner, ok := seen[el.Host]
			if ok && owner != u {
				return el.Host, c.usForHostLocked(el.Host)
			}
			seen[el.Host] = u
		}
	}
	return "", nil
}

func (c *Cache) usForHostLocked(host string) []string {
	var us []string
	for _, u := range sortedKeys(c.entries) {
		for _, el := range c.entries[u] {
			if el.Host == host {
				us = append(us, u)
				break
			}
		}
	}
	return us
}

// HardValidateU re-asks every host cached for u and removes the ones that no
// longer confirm it. Lookup failures count as not confirmed. It returns the
// removed hosts.
func (c *Cache) HardValidateU(ctx context.Context, u string) ([]string, error) {
	c.mu.Lock()
	hosts := make([]string, 0, len(c.entries[u]))
	for _, el := range c.entries[u] {
		hosts = append(hosts, el.Host)
	}
	c.mu.Unlock()

	var failed []string
	for _, host := range hosts {
		ok, err := c.verifyHost(ctx, host, u)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			logging.Warn("OrgCache", "Could not verify host %s for U %s: %v", host, u, err)
		}
		if !ok {
			failed = append(failed, host)
		}
	}

	if len(failed) == 0 {
		return nil, nil
	}

	c.mu.Lock()
	els := c.entries[u]
	for _, host := range failed {
		els = withoutHost(els, host)
	}
	c.metrics.removed("invalid", len(c.entries[u])-len(els))
	c.setLocked(u, els)
	c.mu.Unlock()

	logging.Info("OrgCache", "Removed %d unconfirmed hosts from U %s: %v", len(failed), u, failed)
	return failed, c.persist(ctx)
}

func (c *Cache) verifyHost(ctx context.Context, host, u string) (bool, error) {
	resolver, err := c.resolverFor(host)
	if err != nil {
		return false, err
	}
	return resolver.VerifyU(ctx, u)
}

// HardValidateAll runs HardValidateU for every cached U, a few at a time, and
// returns the removed hosts by U.
func (c *Cache) HardValidateAll(ctx context.Context) (map[string][]string, error) {
	c.mu.Lock()
	us := sortedKeys(c.entries)
	c.mu.Unlock()

	var mu sync.Mutex
	removed := make(map[string][]string)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, u := range us {
		g.Go(func() error {
			hosts, err := c.HardValidateU(gctx, u)
			if err != nil {
				return fmt.Errorf("failed to validate U %s: %w", u, err)
			}
			if len(hosts) > 0 {
				mu.Lock()
				removed[u] = hosts
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return removed, err
	}
	return removed, nil
}

// CleanupOldEntries drops hosts not accessed within the maximum element age
// and returns how many were dropped.
func (c *Cache) CleanupOldEntries(ctx context.Context) (int, error) {
	now := c.now()
	dropped := 0

	c.mu.Lock()
	for u, els := range c.entries {
		kept := els[:0:0]
		for _, el := range els {
			if now.Sub(el.LastAccess) >= c.maxElementAge {
				dropped++
				continue
			}
			kept = append(kept, el)
		}
		if len(kept) != len(els) {
			c.setLocked(u, kept)
		}
	}
	c.mu.Unlock()

	if dropped == 0 {
		return 0, nil
	}
	c.metrics.removed("expired", dropped)
	logging.Info("OrgCache", "Evicted %d hosts not accessed for %s", dropped, c.maxElementAge)
	return dropped, c.persist(ctx)
}

// Start runs CleanupOldEntries now and then every cleanup interval until Stop.
func (c *Cache) Start(ctx context.Context) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.cancelLoop != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancelLoop = cancel
	c.loopDone = make(chan struct{})

	go c.cleanupLoop(loopCtx, c.loopDone)
}

// Stop ends the cleanup loop and waits for it to exit.
func (c *Cache) Stop() {
	c.lifecycleMu.Lock()
	cancel, done := c.cancelLoop, c.loopDone
	c.cancelLoop, c.loopDone = nil, nil
	c.lifecycleMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Cache) cleanupLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	interval := c.cleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := c.CleanupOldEntries(ctx); err != nil && ctx.Err() == nil {
			logging.Error("OrgCache", err, "Org cache cleanup failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// setLocked stores els under u, removing u when els is empty.
func (c *Cache) setLocked(u string, els []Element) {
	if len(els) == 0 {
		delete(c.entries, u)
		return
	}
	c.entries[u] = els
}

func (c *Cache) persist(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.kv.Set(ctx, StorageKey, snapshot); err != nil {
		logging.Error("OrgCache", err, "Failed to persist org cache")
		return fmt.Errorf("failed to persist org cache: %w", err)
	}
	return nil
}

// resolverForTarget keeps the scheme of a full URL; bare hosts go through the factory.
func (c *Cache) resolverForTarget(urlOrHost string, target *url.URL) (UResolver, error) {
	if hasScheme(urlOrHost) {
		return NewResolver(c.fetcher, target), nil
	}
	return c.resolverFor(target.Host)
}

func hasScheme(urlOrHost string) bool {
	return strings.Contains(strings.TrimSpace(urlOrHost), "://")
}

// targetOf parses a URL, or a bare host as https, and validates its host.
func targetOf(urlOrHost string) (*url.URL, error) {
	s := strings.TrimSpace(urlOrHost)
	if !hasScheme(s) {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || !ValidHost(u.Host) {
		return nil, &InvalidHostError{Host: urlOrHost}
	}
	return u, nil
}

// hostOf extracts host[:port] from a URL, or validates a bare host.
func hostOf(urlOrHost string) (string, error) {
	u, err := targetOf(urlOrHost)
	if err != nil {
		return "", err
	}
	return u.Host, nil
}

func baseURL(host string) *url.URL {
	return &url.URL{Scheme: "https", Host: host, Path: "/"}
}

func withoutHost(els []Element, host string) []Element {
	kept := make([]Element, 0, len(els))
	for _, el := range els {
		if el.Host != host {
			kept = append(kept, el)
		}
	}
	return kept
}

func sortedKeys(m map[string][]Element) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
