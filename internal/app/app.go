// Package app wires the launcher's startup sequence: port, data dir, backend
// resolution, environment, spawn. It also owns the exit path that tears the
// backend down before the host process leaves.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/libershare/launcher/internal/config"
	"github.com/libershare/launcher/internal/detector"
	"github.com/libershare/launcher/internal/env"
	"github.com/libershare/launcher/internal/events"
	"github.com/libershare/launcher/internal/locator"
	"github.com/libershare/launcher/internal/port"
	"github.com/libershare/launcher/internal/power"
	"github.com/libershare/launcher/internal/process"
	"github.com/libershare/launcher/internal/session"
)

// readerDrainTimeout bounds how long HandleExit waits for buffered backend
// output after the backend is gone.
const readerDrainTimeout = time.Second

const staleKillTimeout = 2 * time.Second

// Host is the windowing toolkit driving the application.
type Host interface {
	RequestExit(code int)
}

// Resolver finds the backend executable by name.
type Resolver interface {
	Resolve(name string) (string, error)
}

// Options configures New. Zero fields fall back to the running process.
type Options struct {
	Config   config.Config
	Logger   *slog.Logger
	Host     Host
	Resolver Resolver
	GOOS     string
	BaseEnv  []string
}

// App is one launcher run.
type App struct {
	cfg      config.Config
	logger   *slog.Logger
	host     Host
	resolver Resolver
	goos     string
	baseEnv  []string

	bus *events.Bus
	sup *process.Supervisor

	mu       sync.Mutex
	port     uint16
	firstRun bool
	spec     process.Spec
	started  bool

	exitOnce sync.Once
	exitErr  error
}

func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	a := &App{
		cfg:      opts.Config,
		logger:   logger,
		host:     opts.Host,
		resolver: opts.Resolver,
		goos:     goos,
		baseEnv:  opts.BaseEnv,
		bus:      events.NewBus(opts.Config.EventBuffer),
	}
	a.sup = process.NewSupervisor(
		process.WithLogger(logger),
		process.WithSink(process.SinkFunc(a.publish)),
		process.WithTerminateTimeout(opts.Config.TerminateTimeout),
	)
	return a
}

func (a *App) publish(l process.LogLine) {
	a.bus.Emit(string(l.Stream), l.Text)
}

// Start runs the startup stages in order. Any failure is a *StartupError and
// leaves no backend running.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return &StartupError{Stage: StageSpawn, Err: process.ErrAlreadySpawned}
	}

	check := func(stage Stage) error {
		if err := ctx.Err(); err != nil {
			return &StartupError{Stage: stage, Err: err}
		}
		return nil
	}

	if err := check(StagePort); err != nil {
		return err
	}
	p, err := port.Allocate()
	if err != nil {
		return &StartupError{Stage: StagePort, Err: err}
	}
	a.logger.Debug("allocated port", "port", p)

	if err := check(StageDataDir); err != nil {
		return err
	}
	if err := os.MkdirAll(a.cfg.DataDir, 0o750); err != nil {
		return &StartupError{Stage: StageDataDir, Err: err}
	}
	firstRun := !session.HasState(a.cfg.DataDir)
	a.reapStale()

	if err := check(StageLocate); err != nil {
		return err
	}
	resolver, err := a.backendResolver()
	if err != nil {
		return &StartupError{Stage: StageLocate, Err: err}
	}
	path, err := resolver.Resolve(a.cfg.Backend)
	if err != nil {
		return &StartupError{Stage: StageLocate, Err: err}
	}

	if err := check(StageEnv); err != nil {
		return err
	}
	childEnv := a.backendEnv()

	spec := process.Spec{
		Name:    a.cfg.Backend,
		Path:    path,
		DataDir: a.cfg.DataDir,
		Port:    p,
		Env:     childEnv,
		Debug:   a.cfg.Debug,
	}
	if err := spec.Validate(); err != nil {
		return &StartupError{Stage: StageSpec, Err: err}
	}

	if err := check(StageSpawn); err != nil {
		return err
	}
	b, err := a.sup.Spawn(spec)
	if err != nil {
		return &StartupError{Stage: StageSpawn, Err: err}
	}
	if err := detector.WritePID(a.pidFile(), b.PID()); err != nil {
		a.logger.Warn("cannot record backend pid", "error", err)
	}

	a.port = p
	a.firstRun = firstRun
	a.spec = spec
	a.started = true
	return nil
}

func (a *App) pidFile() string { return detector.Path(a.cfg.DataDir) }

// reapStale kills a backend recorded by an earlier run that is still alive,
// typically after the launcher itself crashed.
func (a *App) reapStale() {
	path := a.pidFile()
	rec, err := detector.ReadPID(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			a.logger.Warn("ignoring unreadable backend pid file", "path", path, "error", err)
			_ = detector.RemovePID(path)
		}
		return
	}
	a.stopStale(detector.PIDFileDetector{PIDFile: path}, rec.PID)
	_ = detector.RemovePID(path)
}

// stopStale kills pid only if d confirms it is the recorded backend.
func (a *App) stopStale(d detector.Detector, pid int) {
	alive, err := d.Alive()
	if err != nil {
		a.logger.Warn("cannot check stale backend", "detector", d.Describe(), "error", err)
		return
	}
	if !alive {
		a.logger.Debug("no stale backend running", "detector", d.Describe(), "pid", pid)
		return
	}
	a.logger.Warn("stopping backend left by a previous run", "pid", pid, "detector", d.Describe())
	if err := process.KillPID(pid); err != nil {
		a.logger.Warn("cannot stop stale backend", "pid", pid, "error", err)
		return
	}
	var running detector.Detector = detector.PIDDetector{PID: pid}
	deadline := time.Now().Add(staleKillTimeout)
	for time.Now().Before(deadline) {
		if ok, _ := running.Alive(); !ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	a.logger.Warn("stale backend still running", "detector", running.Describe())
}

func (a *App) backendResolver() (Resolver, error) {
	if a.resolver != nil {
		return a.resolver, nil
	}
	loc, err := locator.New(a.cfg.AppName, a.logger)
	if err != nil {
		return nil, err
	}
	if a.cfg.ResourceDir != "" {
		loc.ResourceDir = a.cfg.ResourceDir
	}
	return loc, nil
}

func (a *App) backendEnv() []string {
	base := a.baseEnv
	if base == nil {
		base = os.Environ()
	}
	if env.InAppImage(base) && a.goos == "linux" {
		a.logger.Info("bundled runtime detected, sanitizing backend environment")
	}
	e := env.New()
	e.FromList(env.Sanitize(base, a.goos))
	return e.Merge(a.cfg.Env)
}

// HandleExit terminates the backend, lets the output readers drain and
// closes the event bus. Only the first call does any work; later calls
// return the same result.
func (a *App) HandleExit() error {
	a.exitOnce.Do(func() {
		b := a.sup.Backend()
		a.exitErr = a.sup.Terminate()
		if b == nil {
			a.bus.Close()
			return
		}
		select {
		case <-b.ReadersDone():
		case <-time.After(readerDrainTimeout):
			a.logger.Warn("backend output readers still running at exit", "pid", b.PID())
		}
		a.bus.Close()
		_ = detector.RemovePID(a.pidFile())
		logStatus(a.logger, b.Snapshot())
	})
	return a.exitErr
}

func logStatus(l *slog.Logger, st process.Status) {
	attrs := []any{"name", st.Name, "pid", st.PID, "state", st.State}
	if !st.StartedAt.IsZero() && !st.StoppedAt.IsZero() {
		attrs = append(attrs, "uptime", st.StoppedAt.Sub(st.StartedAt).Round(time.Millisecond))
	}
	if st.ExitErr != nil {
		attrs = append(attrs, "exit", st.ExitErr.Error())
	}
	l.Info("backend stopped", attrs...)
}

// Port is the backend port, zero before Start succeeds.
func (a *App) Port() uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.port
}

// FirstRun reports whether no window state was persisted before this run.
func (a *App) FirstRun() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.firstRun
}

// Spec returns the spawn spec used by Start.
func (a *App) Spec() process.Spec {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.spec
}

// InitialGeometry returns the first-run window frame for display d. ok is
// false when the toolkit should restore its own saved state instead.
func (a *App) InitialGeometry(d session.Display) (session.Rect, bool) {
	if !a.FirstRun() {
		return session.Rect{}, false
	}
	return session.FirstRunGeometry(d)
}

// Events is the bus carrying backend-stdout and backend-stderr lines.
func (a *App) Events() *events.Bus { return a.bus }

// BackendPID returns the running backend's pid, or 0.
func (a *App) BackendPID() int {
	b := a.sup.Backend()
	if b == nil || b.State() != process.StateRunning {
		return 0
	}
	return b.PID()
}

// BackendDone is closed once the backend has been reaped. It is nil before Start.
func (a *App) BackendDone() <-chan struct{} {
	b := a.sup.Backend()
	if b == nil {
		return nil
	}
	return b.Done()
}

// Power returns the restart/shutdown controller for this platform. It asks
// the host to exit before acting.
func (a *App) Power(opts ...power.Option) power.Controller {
	opts = append([]power.Option{power.WithLogger(a.logger)}, opts...)
	return power.New(a.goos, a.exitHost(), opts...)
}

func (a *App) exitHost() power.Exiter {
	if a.host == nil {
		return power.ExitFunc(func(int) {})
	}
	return a.host
}

// FrontendInitScript is injected into the UI before any page script runs so
// the front end can address the backend.
func FrontendInitScript(port uint16) string {
	return fmt.Sprintf("window.__BACKEND_PORT__ = %d;", port)
}
