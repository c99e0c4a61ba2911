// Package app provides application bootstrap and lifecycle management for scriptsync.
//
// An Application owns every long-lived component and builds them in
// dependency order:
//
//  1. kvstore.Store, the persistence backend selected in configuration
//  2. credentials.Provider, static username/password or a bearer token
//  3. session.Manager, with its Prometheus collectors when metrics are enabled
//  4. org.Cache, using the session manager as its authenticated fetcher
//
// Components are explicit fields rather than package-level singletons, so
// tests can build several independent applications in one process.
//
// # Lifecycle
//
//	application, err := app.NewApplication(ctx, app.NewConfig(false, ""))
//	if err != nil {
//	    return err
//	}
//	defer application.Shutdown(context.Background())
//
//	application.Start(ctx)
//	resp, err := application.Sessions.CSRFFetch(ctx, target, opts, retries)
//
// Start launches the background housekeeping loops (expired session sweep
// and org cache eviction). Short-lived CLI commands may skip it. Shutdown
// stops the loops and closes the store.
//
// # Serve mode
//
// Serve runs the housekeeping loops until the context is cancelled or the
// process receives SIGINT/SIGTERM, optionally exposing /metrics.
package app
