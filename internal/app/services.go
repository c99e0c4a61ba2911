package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"scriptsync/internal/config"
	"scriptsync/internal/credentials"
	"scriptsync/internal/kvstore"
	"scriptsync/internal/org"
	"scriptsync/internal/session"
	"scriptsync/pkg/logging"
)

// Services holds the components built from configuration.
type Services struct {
	// Store persists sessions and the org cache.
	Store kvstore.Store

	// Credentials answers login credential requests.
	Credentials credentials.Provider

	// Sessions is the authenticated multi-origin HTTP client.
	Sessions *session.Manager

	// Orgs maps Us to content server hosts.
	Orgs *org.Cache

	// Registry holds the Prometheus collectors; nil when metrics are disabled.
	Registry *prometheus.Registry
}

// InitializeServices builds and loads every component. On failure, anything
// already opened is closed.
func InitializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	store, err := kvstore.New(ctx, kvstore.Options{
		Backend:  cfg.Storage.Backend,
		Dir:      cfg.Storage.Dir,
		RedisURL: cfg.Storage.RedisURL,
		Prefix:   cfg.Storage.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Backend, err)
	}
	logging.Debug("Bootstrap", "Opened %s store", cfg.Storage.Backend)

	services, err := buildServices(ctx, cfg, store)
	if err != nil {
		if closeErr := store.Close(); closeErr != nil {
			logging.Warn("Bootstrap", "Failed to close store: %v", closeErr)
		}
		return nil, err
	}
	return services, nil
}

func buildServices(ctx context.Context, cfg *config.Config, store kvstore.Store) (*Services, error) {
	services := &Services{
		Store:       store,
		Credentials: newCredentials(cfg.Credentials),
	}

	var sessionMetrics *session.Metrics
	var orgMetrics *org.Metrics
	if cfg.Metrics.Enabled {
		services.Registry = prometheus.NewRegistry()
		services.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		sessionMetrics = session.NewMetrics(services.Registry)
		orgMetrics = org.NewMetrics(services.Registry)
	}

	services.Sessions = session.NewManager(store, services.Credentials,
		session.WithHTTPClient(&http.Client{Timeout: cfg.Session.HTTPTimeout}),
		session.WithTTL(cfg.Session.TTL),
		session.WithRetryDelay(cfg.Session.RetryDelay),
		session.WithFirstSweepDelay(cfg.Session.FirstSweepDelay),
		session.WithCredentialFlag(cfg.Credentials.Flag),
		session.WithMetrics(sessionMetrics),
	)
	if err := services.Sessions.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	services.Orgs = org.NewCache(store, services.Sessions,
		org.WithHelperURL(cfg.Org.HelperURL),
		org.WithMaxElementAge(cfg.Org.MaxElementAge),
		org.WithCleanupInterval(cfg.Org.CleanupInterval),
		org.WithValidationConcurrency(cfg.Org.ValidationConcurrency),
		org.WithCacheMetrics(orgMetrics),
	)
	if err := services.Orgs.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to load org cache: %w", err)
	}

	return services, nil
}

func newCredentials(cfg config.CredentialsConfig) credentials.Provider {
	if cfg.HasBearerToken() {
		return credentials.NewStaticToken(cfg.BearerToken)
	}

	static := credentials.NewStatic(cfg.Username, cfg.Password)
	for flag, set := range cfg.Sets {
		static.Set(flag, credentials.Credential{Username: set.Username, Password: set.Password})
	}
	return static
}
