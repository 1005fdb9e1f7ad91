package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/libershare/launcher/internal/app"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := buildRoot()
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(reportError(os.Stderr, err))
	}
}

// reportError prints err and returns the process exit code.
func reportError(w io.Writer, err error) int {
	var se *app.StartupError
	if errors.As(err, &se) {
		_, _ = fmt.Fprintf(w, "launcher: cannot start (%s): %v\n", se.Stage, se.Err)
		return 1
	}
	_, _ = fmt.Fprintln(w, err)
	return 1
}

func buildRoot() *cobra.Command {
	flags := &RootFlags{}
	powerFlags := &PowerFlags{}

	root := createRootCommand(flags)
	root.AddCommand(
		createPowerCommand(flags, powerFlags),
	)
	return root
}

func createRootCommand(flags *RootFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "launcher",
		Short: "Start and supervise the LiberShare backend",
		Long: `Launcher picks a free local port, starts the bundled backend bound to it
and stops the backend again when the launcher exits.

Examples:
  launcher                          # run until interrupted
  launcher --debug                  # mirror backend output to this terminal
  launcher --metrics-addr=:9464     # expose /metrics
  launcher power restart --dry-run  # print the restart helper command`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLauncher(cmd.Context(), flags, cmd.Flags(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	pf.BoolVar(&flags.Debug, "debug", false, "capture backend output and log at debug level")
	pf.StringVar(&flags.DataDir, "data-dir", "", "application data directory passed to the backend")
	pf.StringVar(&flags.ResourceDir, "resource-dir", "", "packaged resources directory searched for the backend")
	pf.StringVar(&flags.Backend, "backend", "", "backend executable name")
	pf.StringVar(&flags.MetricsAddr, "metrics-addr", "", "listen address for Prometheus metrics (disabled when empty)")
	pf.StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flags.LogFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&flags.LogFile, "log-file", "", "also write logs to this rotating file")

	return root
}
