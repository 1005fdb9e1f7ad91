package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/libershare/launcher/internal/app"
	"github.com/libershare/launcher/internal/config"
	"github.com/libershare/launcher/internal/events"
	"github.com/libershare/launcher/internal/logger"
	"github.com/libershare/launcher/internal/metrics"
	"github.com/libershare/launcher/internal/power"
	"github.com/libershare/launcher/internal/process"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

// powerStarter launches the restart/shutdown helper.
var powerStarter power.Starter = power.StartDetached

// runLauncher starts the backend and blocks until ctx is cancelled, the host
// asks to exit (a power signal does this), or the backend exits on its own.
// The backend is always terminated before it returns. Only startup failures
// are returned as errors.
func runLauncher(ctx context.Context, flags *RootFlags, fs *pflag.FlagSet, stdout, stderr io.Writer) error {
	cfg, err := config.Load(flags.ConfigPath, fs)
	if err != nil {
		return err
	}
	if cfg.Debug && attachConsole() {
		stdout, stderr = os.Stdout, os.Stderr
	}

	log, closer := logger.New(cfg.Log, stderr)
	defer func() { _ = closer.Close() }()
	slog.SetDefault(log)

	host := newHeadlessHost()
	a := app.New(app.Options{Config: cfg, Logger: log, Host: host})

	var mirrors sync.WaitGroup
	if cfg.Debug {
		mirror(&mirrors, a.Events(), process.Stdout, stdout)
		mirror(&mirrors, a.Events(), process.Stderr, stderr)
	}

	if cfg.MetricsAddr != "" {
		srv, err := serveMetrics(cfg, a, log)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	powerSignals := make(chan os.Signal, 1)
	notifyPowerSignals(powerSignals)
	defer signal.Stop(powerSignals)

	if err := a.Start(ctx); err != nil {
		_ = a.HandleExit()
		mirrors.Wait()
		return err
	}
	log.Info("launcher ready",
		"port", a.Port(),
		"data_dir", cfg.DataDir,
		"first_run", a.FirstRun(),
		"init_script", app.FrontendInitScript(a.Port()),
	)

	waitForExit(ctx, log, host, a, powerSignals)

	quitResult(a.HandleExit(), log)
	mirrors.Wait()
	return nil
}

// waitForExit blocks until a reason to stop arrives. Power signals schedule
// the action and ask the host to exit, which ends the wait on the next turn.
func waitForExit(ctx context.Context, log *slog.Logger, host *headlessHost, a *app.App, powerSignals <-chan os.Signal) {
	ctl := a.Power(power.WithStarter(powerStarter))
	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown requested", "reason", context.Cause(ctx))
			return
		case code := <-host.Exit():
			log.Info("host requested exit", "code", code)
			return
		case <-a.BackendDone():
			log.Warn("backend exited, shutting down launcher")
			return
		case sig := <-powerSignals:
			action, ok := powerActionFor(sig)
			if !ok {
				continue
			}
			log.Info("power action requested", "action", string(action), "signal", sig.String())
			switch action {
			case power.Restart:
				ctl.Restart()
			case power.Shutdown:
				ctl.Shutdown()
			}
		}
	}
}

// quitResult logs a backend that could not be stopped. Quitting still
// exits 0; non-zero codes are reserved for startup failures.
func quitResult(err error, log *slog.Logger) {
	if err == nil {
		return
	}
	if errors.Is(err, process.ErrTerminateTimeout) {
		log.Error("backend did not exit before the terminate timeout", "error", err)
		return
	}
	log.Error("failed to stop backend", "error", err)
}

// mirror copies one backend output channel to w until the bus closes.
func mirror(wg *sync.WaitGroup, bus *events.Bus, stream process.Stream, w io.Writer) {
	ch, _ := bus.Subscribe(string(stream))
	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range ch {
			_, _ = fmt.Fprintln(w, e.Payload)
		}
	}()
}

func serveMetrics(cfg config.Config, a *app.App, log *slog.Logger) (*http.Server, error) {
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	collector := metrics.NewBackendCollector(cfg.Backend, a.BackendPID)
	if err := prometheus.DefaultRegisterer.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("register backend collector: %w", err)
		}
	}
	srv := metrics.NewServer(cfg.MetricsAddr, metrics.HandlerFor(prometheus.DefaultGatherer))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", "addr", cfg.MetricsAddr, "error", err)
		}
	}()
	log.Info("metrics listening", "addr", cfg.MetricsAddr)
	return srv, nil
}
