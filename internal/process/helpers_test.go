package process

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests require sh stub backends on Unix-like systems")
	}
}

// writeStub writes an executable shell script acting as the backend.
func writeStub(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "stub-backend")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return p
}

func stubSpec(t *testing.T, body string, debug bool) Spec {
	t.Helper()
	return Spec{
		Name:    "stub",
		Path:    writeStub(t, body),
		DataDir: t.TempDir(),
		Port:    40000,
		Debug:   debug,
	}
}

// recorder is a Sink collecting lines for assertions.
type recorder struct {
	mu    sync.Mutex
	lines []LogLine
	ch    chan LogLine
}

func newRecorder() *recorder { return &recorder{ch: make(chan LogLine, 64)} }

func (r *recorder) Publish(l LogLine) {
	r.mu.Lock()
	r.lines = append(r.lines, l)
	r.mu.Unlock()
	select {
	case r.ch <- l:
	default:
	}
}

func (r *recorder) byStream(s Stream) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, l := range r.lines {
		if l.Stream == s {
			out = append(out, l.Text)
		}
	}
	return out
}

func waitClosed(t *testing.T, ch <-chan struct{}, d time.Duration, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(d):
		t.Fatalf("timed out waiting for %s", what)
	}
}
