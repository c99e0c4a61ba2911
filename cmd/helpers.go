package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"scriptsync/internal/app"
	"scriptsync/internal/formatting"
)

// shutdownTimeout bounds how long a command waits for the store to close.
const shutdownTimeout = 5 * time.Second

// runWithApp builds the application from the global flags, runs fn and shuts
// the application down again.
func runWithApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := app.NewConfig(rootDebug, rootConfigPath)
	cfg.LogOutput = cmd.ErrOrStderr()

	application, err := app.NewApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := application.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
			err = shutdownErr
		}
	}()

	return fn(ctx, application)
}

// addOutputFlag registers --output on cmd and returns the bound value.
func addOutputFlag(cmd *cobra.Command, def formatting.OutputFormat) *string {
	out := new(string)
	cmd.Flags().StringVarP(out, "output", "o", string(def), "Output format: table, console, json or yaml")
	return out
}

// newFormatter validates the --output value and builds the formatter.
func newFormatter(cmd *cobra.Command, output string) (formatting.Formatter, error) {
	format, ok := formatting.ParseFormat(output)
	if !ok {
		return nil, fmt.Errorf("unsupported output format %q", output)
	}
	return formatting.New(formatting.Options{Format: format, Output: cmd.OutOrStdout()}), nil
}
