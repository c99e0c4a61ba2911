package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"scriptsync/internal/config"
	"scriptsync/internal/credentials"
	"scriptsync/internal/org"
	"scriptsync/internal/session"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates no credentials are configured.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the content server rejected the login or session.
	ExitCodeAuthFailed = 3
	// ExitCodeConfig indicates invalid configuration.
	ExitCodeConfig = 4
	// ExitCodeRetriesExhausted indicates a CSRF-protected request failed on every attempt.
	ExitCodeRetriesExhausted = 5
	// ExitCodeTimeout indicates a request was cancelled or timed out.
	ExitCodeTimeout = 6
	// ExitCodeCacheIntegrity indicates the org cache holds a host under several Us.
	ExitCodeCacheIntegrity = 7
)

var (
	rootConfigPath string
	rootDebug      bool
)

// rootCmd represents the base command for the scriptsync application.
var rootCmd = newRootCmd()

// newRootCmd builds the command tree. Tests build a fresh tree per run so
// flag values do not leak between them.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scriptsync",
		Short: "Authenticated client for remote content servers",
		Long: `scriptsync talks to remote content servers on behalf of a user.

It keeps one authenticated session per server origin, attaches CSRF tokens
to protected requests and retries them when the session goes stale. It also
remembers which hosts serve which organization (U), so a U can be reached
through any of its known hosts.`,
		// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&rootConfigPath, "config-path", "", "Configuration directory (default is $HOME/.config/scriptsync)")
	cmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(newOrgCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	return cmd
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "scriptsync version %s\n" .Version}}`)

	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	if errors.Is(err, credentials.ErrNoCredentials) {
		return ExitCodeAuthRequired
	}

	var unauthorized *session.UnauthorizedError
	var sessionIDMissing *session.SessionIDMissingError
	if errors.As(err, &unauthorized) || errors.As(err, &sessionIDMissing) {
		return ExitCodeAuthFailed
	}

	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitCodeConfig
	}

	var exhausted *session.RetryAttemptsExhaustedError
	if errors.As(err, &exhausted) {
		return ExitCodeRetriesExhausted
	}

	var timeout *session.RequestTimeoutError
	if errors.As(err, &timeout) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ExitCodeTimeout
	}

	var integrity *org.CacheIntegrityError
	if errors.As(err, &integrity) {
		return ExitCodeCacheIntegrity
	}

	return ExitCodeError
}
