package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"scriptsync/internal/app"
)

func newServeCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run session and org cache housekeeping until interrupted",
		Long: `Keep sweeping expired sessions and evicting stale org cache hosts from the
shared store until SIGINT or SIGTERM. Useful with the redis backend, where
several scriptsync processes share one store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app.Application) error {
				return a.Serve(ctx, metricsAddr)
			})
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (requires metrics.enabled)")
	return cmd
}
