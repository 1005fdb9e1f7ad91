package main

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"

	"github.com/libershare/launcher/internal/config"
	"github.com/libershare/launcher/internal/logger"
	"github.com/libershare/launcher/internal/power"
	"github.com/spf13/cobra"
)

func createPowerCommand(flags *RootFlags, powerFlags *PowerFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "power",
		Short: "Restart or shut down the machine once the launcher has exited",
		Long: `Start a detached helper that waits for this process to exit and then
restarts or powers off the machine.

Examples:
  launcher power restart
  launcher power shutdown --dry-run`,
	}
	cmd.PersistentFlags().BoolVar(&powerFlags.DryRun, "dry-run", false, "print the helper command instead of running it")

	for _, action := range []power.Action{power.Restart, power.Shutdown} {
		cmd.AddCommand(createPowerActionCommand(action, flags, powerFlags))
	}
	return cmd
}

func createPowerActionCommand(action power.Action, flags *RootFlags, powerFlags *PowerFlags) *cobra.Command {
	return &cobra.Command{
		Use:   string(action),
		Short: fmt.Sprintf("Schedule a %s after the launcher exits", action),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPower(action, flags, powerFlags, cmd, runtime.GOOS)
		},
	}
}

func runPower(action power.Action, flags *RootFlags, powerFlags *PowerFlags, cmd *cobra.Command, goos string) error {
	cfg, err := config.Load(flags.ConfigPath, cmd.Flags())
	if err != nil {
		return err
	}
	log, closer := logger.New(cfg.Log, cmd.ErrOrStderr())
	defer func() { _ = closer.Close() }()

	opts := []power.Option{power.WithLogger(log)}
	if powerFlags.DryRun {
		opts = append(opts, power.WithStarter(printStarter(cmd.OutOrStdout())))
	}
	exit := power.ExitFunc(func(code int) {
		log.Debug("launcher exiting for power action", "action", string(action), "code", code)
	})
	ctl := power.New(goos, exit, opts...)
	switch action {
	case power.Restart:
		ctl.Restart()
	case power.Shutdown:
		ctl.Shutdown()
	}
	return nil
}

func printStarter(w io.Writer) power.Starter {
	return func(c *exec.Cmd) error {
		_, err := fmt.Fprintln(w, strings.Join(c.Args, " "))
		return err
	}
}

