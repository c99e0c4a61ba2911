package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"scriptsync/internal/app"
	"scriptsync/internal/formatting"
	"scriptsync/internal/session"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and clear stored sessions",
	}
	cmd.AddCommand(newSessionListCmd(), newSessionClearCmd())
	return cmd
}

func newSessionListCmd() *cobra.Command {
	var output *string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := newFormatter(cmd, *output)
			if err != nil {
				return err
			}
			return runWithApp(cmd, func(_ context.Context, a *app.Application) error {
				return formatter.FormatSessions(a.Sessions.Sessions(), a.Sessions.TTL(), time.Now())
			})
		},
	}
	output = addOutputFlag(cmd, formatting.FormatTable)
	return cmd
}

func newSessionClearCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear [origin-or-url]",
		Short: "Forget the session for an origin, or every session with --all",
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return fmt.Errorf("--all does not take an origin")
			}
			if !all && len(args) != 1 {
				return fmt.Errorf("requires an origin or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app.Application) error {
				var origins []string
				if all {
					for _, s := range a.Sessions.Sessions() {
						origins = append(origins, s.Origin)
					}
				} else {
					_, origin, err := session.ParseTarget(args[0])
					if err != nil {
						return err
					}
					origins = []string{origin}
				}

				for _, origin := range origins {
					if err := a.Sessions.ClearSession(ctx, origin); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d session(s)\n", len(origins))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Clear every session")
	return cmd
}
