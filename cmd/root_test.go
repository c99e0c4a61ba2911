package cmd

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"scriptsync/internal/config"
	"scriptsync/internal/credentials"
	"scriptsync/internal/org"
	"scriptsync/internal/session"
)

func TestSetVersion(t *testing.T) {
	originalVersion := rootCmd.Version
	defer func() { rootCmd.Version = originalVersion }()

	SetVersion("1.2.3-test")

	if GetVersion() != "1.2.3-test" {
		t.Errorf("Expected version to be 1.2.3-test, got %s", GetVersion())
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "scriptsync" {
		t.Errorf("Expected Use to be 'scriptsync', got %s", rootCmd.Use)
	}

	if rootCmd.Short == "" {
		t.Error("Expected Short description to be set")
	}

	if !rootCmd.SilenceUsage {
		t.Error("Expected SilenceUsage to be true")
	}

	for _, name := range []string{"version", "fetch", "session", "org", "serve"} {
		if _, _, err := rootCmd.Find([]string{name}); err != nil {
			t.Errorf("Expected subcommand %q: %v", name, err)
		}
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"generic", errors.New("boom"), ExitCodeError},
		{"no credentials", fmt.Errorf("login: %w", credentials.ErrNoCredentials), ExitCodeAuthRequired},
		{"unauthorized", &session.UnauthorizedError{Origin: "https://a", StatusCode: 401}, ExitCodeAuthFailed},
		{"session id missing", &session.SessionIDMissingError{Origin: "https://a"}, ExitCodeAuthFailed},
		{"configuration", &config.ConfigurationError{ErrorType: "validation"}, ExitCodeConfig},
		{"retries exhausted", &session.RetryAttemptsExhaustedError{URL: "https://a/x", Attempts: 3}, ExitCodeRetriesExhausted},
		{"request timeout", &session.RequestTimeoutError{URL: "https://a/x", Err: context.DeadlineExceeded}, ExitCodeTimeout},
		{"context cancelled", fmt.Errorf("wrapped: %w", context.Canceled), ExitCodeTimeout},
		{"cache integrity", &org.CacheIntegrityError{Host: "h", Us: []string{"a", "b"}}, ExitCodeCacheIntegrity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getExitCode(tt.err); got != tt.want {
				t.Errorf("getExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
