package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"scriptsync/internal/config"
	"scriptsync/pkg/logging"
)

// Application owns the scriptsync components and their lifecycle.
type Application struct {
	*Services

	settings config.Config

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewApplication configures logging, loads configuration and builds every
// component. The returned Application must be shut down with Shutdown.
func NewApplication(ctx context.Context, cfg *Config) (*Application, error) {
	var logOutput io.Writer = os.Stderr
	if cfg.LogOutput != nil {
		logOutput = cfg.LogOutput
	}

	settings, err := loadSettings(cfg)
	if err != nil {
		logging.InitForCLI(logging.LevelInfo, logOutput)
		logging.Error("Bootstrap", err, "Failed to load configuration")
		return nil, err
	}

	level := logging.ParseLevel(settings.LogLevel)
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, logOutput)

	if err := settings.Validate(); err != nil {
		logging.Error("Bootstrap", err, "Invalid configuration")
		return nil, err
	}

	services, err := InitializeServices(ctx, &settings)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		Services: services,
		settings: settings,
	}, nil
}

func loadSettings(cfg *Config) (config.Config, error) {
	if cfg.Settings != nil {
		return *cfg.Settings, nil
	}

	path := cfg.ConfigPath
	if path == "" {
		var err error
		if path, err = config.GetDefaultConfigPath(); err != nil {
			return config.Config{}, err
		}
	}
	return config.LoadConfig(path)
}

// Settings returns the effective configuration.
func (a *Application) Settings() config.Config {
	return a.settings
}

// Start launches the session sweep and org cache eviction loops. Calling it
// again is a no-op.
func (a *Application) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started || a.closed {
		return
	}
	a.started = true

	a.Sessions.Start(ctx)
	a.Orgs.Start(ctx)
	logging.Debug("App", "Housekeeping started")
}

// Shutdown stops background loops and closes the store. It is safe to call
// more than once.
func (a *Application) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		a.Sessions.Stop()
		a.Orgs.Stop()
		done <- a.Store.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to close store: %w", err)
		}
		logging.Debug("App", "Shutdown complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown interrupted: %w", ctx.Err())
	}
}
