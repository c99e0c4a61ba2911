// Package logging provides the subsystem-tagged structured logger used across scriptsync.
//
// The logger is a thin layer over log/slog. Every record carries a "subsystem"
// attribute so output can be filtered by component:
//
//   - Session: session manager, login and cookie handling
//   - CSRF: protected fetches and their retry loop
//   - OrgCache / OrgResolver: tenant identity cache and lookups
//   - KVStore: persistence backends
//   - App: bootstrap and shutdown
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//	logging.Info("Session", "Logged in to %s", origin)
//	logging.Error("OrgCache", err, "Failed to persist cache")
//
// Secrets such as JSESSIONID values and CSRF tokens must only be logged through
// TruncateSecret.
package logging
