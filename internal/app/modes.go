package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scriptsync/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the housekeeping loops until ctx is cancelled or the process
// receives SIGINT or SIGTERM. When metricsAddr is set and metrics are
// enabled, /metrics is served there.
func (a *Application) Serve(ctx context.Context, metricsAddr string) error {
	if metricsAddr != "" && a.Registry == nil {
		return fmt.Errorf("metrics address set but metrics are disabled in configuration")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Start(ctx)
	logging.Info("App", "Serving with %d sessions loaded. Press Ctrl+C to stop.", len(a.Sessions.Sessions()))

	var srv *http.Server
	errCh := make(chan error, 1)
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			logging.Info("App", "Serving metrics on %s/metrics", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logging.Info("App", "Shutting down")
	case runErr = <-errCh:
		logging.Error("App", runErr, "Metrics server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("App", "Metrics server shutdown: %v", err)
		}
	}
	if err := a.Shutdown(shutdownCtx); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}
