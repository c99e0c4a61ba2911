package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"scriptsync/internal/app"
	"scriptsync/internal/formatting"
)

func newOrgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Resolve and manage the U → host cache",
		Long: `Every content server host serves exactly one organization, identified by
its U. The org cache remembers which hosts serve which U so a U can be
reached without asking a directory service each time.`,
	}
	cmd.AddCommand(
		newOrgFindCmd(),
		newOrgAddCmd(),
		newOrgBaseURLCmd(),
		newOrgListCmd(),
		newOrgValidateCmd(),
		newOrgCleanCmd(),
	)
	return cmd
}

func newOrgFindCmd() *cobra.Command {
	var cacheOnly bool

	cmd := &cobra.Command{
		Use:   "find <url-or-host>",
		Short: "Print the U served by a host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app.Application) error {
				u, err := a.Orgs.FindU(ctx, args[0], cacheOnly)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), u)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&cacheOnly, "cache-only", false, "Do not query the host when it is not cached")
	return cmd
}

func newOrgAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <u> <url-or-host>",
		Short: "Record that a host serves a U",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.Orgs.AddHost(ctx, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s to %s\n", args[1], args[0])
				return nil
			})
		},
	}
}

func newOrgBaseURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "base-url <u>",
		Short: "Print a base URL of some host serving a U",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app.Application) error {
				base, err := a.Orgs.GetAnyBaseURL(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), base.String())
				return nil
			})
		},
	}
}

func newOrgListCmd() *cobra.Command {
	var output *string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List cached hosts by U",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := newFormatter(cmd, *output)
			if err != nil {
				return err
			}
			return runWithApp(cmd, func(_ context.Context, a *app.Application) error {
				return formatter.FormatOrgCache(a.Orgs.Snapshot(), time.Now())
			})
		},
	}
	output = addOutputFlag(cmd, formatting.FormatTable)
	return cmd
}

func newOrgValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [u]",
		Short: "Re-check cached hosts and drop the ones that no longer serve their U",
		Long: `Ask every cached host of a U, or of every U when none is given, which U it
serves. Hosts that answer differently or cannot be reached are removed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app.Application) error {
				removed := make(map[string][]string)
				if len(args) == 1 {
					hosts, err := a.Orgs.HardValidateU(ctx, args[0])
					if err != nil {
						return err
					}
					if len(hosts) > 0 {
						removed[args[0]] = hosts
					}
				} else {
					var err error
					if removed, err = a.Orgs.HardValidateAll(ctx); err != nil {
						return err
					}
				}

				total := 0
				for u, hosts := range removed {
					for _, h := range hosts {
						fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %s\n", h, u)
					}
					total += len(hosts)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d host(s) removed\n", total)
				return nil
			})
		},
	}
}

func newOrgCleanCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Evict stale hosts and repair hosts cached under several Us",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.Orgs.CleanDuplicates(ctx, check); err != nil {
					return err
				}
				if check {
					fmt.Fprintln(cmd.OutOrStdout(), "No duplicate hosts")
					return nil
				}

				dropped, err := a.Orgs.CleanupOldEntries(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Evicted %d stale host(s)\n", dropped)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Fail on duplicate hosts instead of removing them")
	return cmd
}
