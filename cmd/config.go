package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"scriptsync/internal/app"
	"scriptsync/internal/config"
	"scriptsync/internal/formatting"
	"scriptsync/pkg/logging"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var output *string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the configuration after defaults, config.yaml and environment are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := newFormatter(cmd, *output)
			if err != nil {
				return err
			}
			return runWithApp(cmd, func(_ context.Context, a *app.Application) error {
				return formatter.FormatData(configSummary(a.Settings()))
			})
		},
	}
	output = addOutputFlag(cmd, formatting.FormatTable)
	return cmd
}

// configSummary flattens cfg for display with secrets truncated.
func configSummary(cfg config.Config) map[string]interface{} {
	return map[string]interface{}{
		"logLevel":                  cfg.LogLevel,
		"storage.backend":           cfg.Storage.Backend,
		"storage.dir":               cfg.Storage.Dir,
		"storage.redisUrl":          logging.TruncateSecret(cfg.Storage.RedisURL),
		"credentials.username":      cfg.Credentials.Username,
		"credentials.password":      logging.TruncateSecret(cfg.Credentials.Password),
		"credentials.bearerToken":   logging.TruncateSecret(cfg.Credentials.BearerToken),
		"credentials.flag":          cfg.Credentials.Flag,
		"session.ttl":               cfg.Session.TTL.String(),
		"session.httpTimeout":       cfg.Session.HTTPTimeout.String(),
		"session.retryDelay":        cfg.Session.RetryDelay.String(),
		"session.csrfRetries":       cfg.Session.CSRFRetries,
		"org.helperUrl":             cfg.Org.HelperURL,
		"org.maxElementAge":         cfg.Org.MaxElementAge.String(),
		"org.cleanupInterval":       cfg.Org.CleanupInterval.String(),
		"org.validationConcurrency": cfg.Org.ValidationConcurrency,
		"metrics.enabled":           cfg.Metrics.Enabled,
	}
}
