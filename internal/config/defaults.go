package config

import (
	"scriptsync/internal/kvstore"
	"scriptsync/internal/org"
	"scriptsync/internal/session"
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Storage: StorageConfig{
			Backend: kvstore.BackendFile,
			Prefix:  kvstore.DefaultRedisPrefix,
		},
		Session: SessionConfig{
			TTL:             session.DefaultTTL,
			HTTPTimeout:     session.DefaultHTTPTimeout,
			RetryDelay:      session.DefaultRetryDelay,
			FirstSweepDelay: session.DefaultFirstSweepDelay,
			CSRFRetries:     session.DefaultCSRFRetries,
		},
		Org: OrgConfig{
			MaxElementAge:         org.DefaultMaxElementAge,
			CleanupInterval:       org.DefaultCleanupInterval,
			ValidationConcurrency: org.DefaultValidationConcurrency,
		},
	}
}
