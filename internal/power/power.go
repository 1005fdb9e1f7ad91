// Package power restarts or shuts down the machine after the launcher exits.
//
// Each OS gets its own Controller variant. On Windows and Linux a detached
// helper waits for the launcher's pid to disappear before acting, so the power
// action never races the application's own teardown. On macOS System Events
// handles the ordering itself.
package power

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/libershare/launcher/internal/metrics"
)

// Action is the requested power operation.
type Action string

const (
	Restart  Action = "restart"
	Shutdown Action = "shutdown"
)

// ErrCommandUnavailable is logged when no helper command exists for the OS.
var ErrCommandUnavailable = errors.New("power command unavailable")

// Controller performs power actions. Failures are logged, never returned:
// the application always exits even when the power action cannot happen.
type Controller interface {
	Restart()
	Shutdown()
}

// Exiter asks the hosting application to exit with code. It may return
// before the exit happens.
type Exiter interface {
	RequestExit(code int)
}

// ExitFunc adapts a function to Exiter.
type ExitFunc func(code int)

func (f ExitFunc) RequestExit(code int) { f(code) }

// Starter launches a prepared helper command without waiting for it.
type Starter func(cmd *exec.Cmd) error

// CommandBuilder returns the helper argv for action. pid is the launcher's
// own process id the helper waits on.
type CommandBuilder func(action Action, pid int) []string

type Option func(*controller)

// WithStarter replaces the detached process starter, e.g. for dry runs.
func WithStarter(s Starter) Option {
	return func(c *controller) {
		if s != nil {
			c.start = s
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPID overrides the pid embedded in the wait predicate.
func WithPID(pid int) Option {
	return func(c *controller) { c.pid = pid }
}

// New returns the Controller variant for goos.
func New(goos string, exiter Exiter, opts ...Option) Controller {
	c := &controller{
		goos:   goos,
		exiter: exiter,
		pid:    os.Getpid(),
		start:  StartDetached,
		logger: slog.Default(),
	}
	switch goos {
	case "windows":
		c.build = WindowsCommand
	case "linux":
		c.build = LinuxCommand
	case "darwin":
		c.build = DarwinCommand
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type controller struct {
	goos   string
	exiter Exiter
	pid    int
	build  CommandBuilder
	start  Starter
	logger *slog.Logger
}

func (c *controller) Restart()  { c.run(Restart) }
func (c *controller) Shutdown() { c.run(Shutdown) }

func (c *controller) run(action Action) {
	if c.exiter != nil {
		c.exiter.RequestExit(0)
	}
	if c.build == nil {
		metrics.IncPowerAction(string(action), "unavailable")
		c.logger.Warn("power action not supported", "action", string(action), "os", c.goos, "error", ErrCommandUnavailable)
		return
	}
	argv := c.build(action, c.pid)
	// #nosec G204
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := c.start(cmd); err != nil {
		metrics.IncPowerAction(string(action), "failed")
		c.logger.Warn("failed to start power helper", "action", string(action), "command", strings.Join(argv, " "), "error", fmt.Errorf("%w: %w", ErrCommandUnavailable, err))
		return
	}
	metrics.IncPowerAction(string(action), "started")
	c.logger.Info("power helper started", "action", string(action), "wait_pid", c.pid)
}

// StartDetached starts cmd detached from the launcher so it outlives it, then
// releases the handle.
func StartDetached(cmd *exec.Cmd) error {
	configureDetached(cmd)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
