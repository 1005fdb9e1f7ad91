package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/libershare/launcher/internal/app"
	"github.com/libershare/launcher/internal/locator"
	"github.com/libershare/launcher/internal/process"
)

// syncBuffer is written by log and mirror goroutines at the same time.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests require sh stub backends on Unix-like systems")
	}
}

// stubResources writes an executable named stub-backend into a fresh
// resource directory.
func stubResources(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "stub-backend")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return dir
}

func execute(ctx context.Context, args ...string) (string, string, error) {
	root := buildRoot()
	var stdout, stderr syncBuffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func TestHelpListsCommands(t *testing.T) {
	out, _, err := execute(context.Background(), "--help")
	if err != nil {
		t.Fatalf("help should succeed: %v", err)
	}
	for _, want := range []string{"launcher", "power", "--debug", "--metrics-addr"} {
		if !strings.Contains(out, want) {
			t.Fatalf("help output missing %q:\n%s", want, out)
		}
	}
}

func TestPowerDryRunPrintsHelper(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	out, _, err := execute(context.Background(), "power", "restart", "--dry-run")
	if err != nil {
		t.Fatalf("power restart: %v", err)
	}
	switch runtime.GOOS {
	case "linux", "windows":
		if !strings.Contains(out, strconv.Itoa(os.Getpid())) {
			t.Fatalf("helper should wait on launcher pid %d: %s", os.Getpid(), out)
		}
	case "darwin":
		if !strings.Contains(out, "osascript") {
			t.Fatalf("unexpected helper: %s", out)
		}
	}
}

func TestPowerRejectsArgs(t *testing.T) {
	if _, _, err := execute(context.Background(), "power", "shutdown", "now"); err == nil {
		t.Fatal("expected error for extra argument")
	}
}

func TestRunStopsWhenBackendExits(t *testing.T) {
	requireUnix(t)
	res := stubResources(t, `echo "READY"; echo "oops" >&2; exit 0`)
	out, errOut, err := execute(context.Background(),
		"--resource-dir", res, "--backend", "stub-backend", "--data-dir", t.TempDir(), "--debug")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, errOut)
	}
	if strings.TrimSpace(out) != "READY" {
		t.Fatalf("stdout = %q", out)
	}
	if !strings.Contains(errOut, "oops") {
		t.Fatalf("stderr should mirror backend stderr: %s", errOut)
	}
	if !strings.Contains(errOut, "launcher ready") {
		t.Fatalf("missing ready log: %s", errOut)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	requireUnix(t)
	res := stubResources(t, `echo "READY"; exec sleep 30`)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root := buildRoot()
	var stdout, stderr syncBuffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"--resource-dir", res, "--backend", "stub-backend", "--data-dir", t.TempDir(), "--debug"})

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(stdout.String(), "READY") {
		if time.Now().After(deadline) {
			t.Fatalf("backend never became ready: %s", stderr.String())
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("launcher did not stop after cancel")
	}
	if !strings.Contains(stderr.String(), "shutdown requested") {
		t.Fatalf("missing shutdown log: %s", stderr.String())
	}
}

func TestRunReportsMissingBackend(t *testing.T) {
	_, _, err := execute(context.Background(),
		"--resource-dir", t.TempDir(), "--backend", "no-such-backend", "--data-dir", t.TempDir())
	var se *app.StartupError
	if !errors.As(err, &se) || se.Stage != app.StageLocate {
		t.Fatalf("expected locate startup error, got %v", err)
	}
	if !errors.Is(err, locator.ErrBackendNotFound) {
		t.Fatalf("expected ErrBackendNotFound, got %v", err)
	}

	var w bytes.Buffer
	if code := reportError(&w, err); code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(w.String(), "cannot start (locate)") {
		t.Fatalf("report = %q", w.String())
	}
}

func TestQuitResultNeverFailsTheExit(t *testing.T) {
	var logs syncBuffer
	log := slog.New(slog.NewTextHandler(&logs, nil))

	quitResult(nil, log)
	if logs.String() != "" {
		t.Fatalf("clean stop should log nothing: %s", logs.String())
	}
	quitResult(fmt.Errorf("stop: %w", process.ErrTerminateTimeout), log)
	if !strings.Contains(logs.String(), "terminate timeout") {
		t.Fatalf("timeout not logged: %s", logs.String())
	}
	if strings.Contains(logs.String(), "failed to stop backend") {
		t.Fatalf("timeout should get its own message: %s", logs.String())
	}

	quitResult(errors.New("boom"), log)
	if !strings.Contains(logs.String(), "failed to stop backend") {
		t.Fatalf("stop failure not logged: %s", logs.String())
	}
}
