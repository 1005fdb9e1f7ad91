// Package locator finds the backend executable shipped next to the launcher.
package locator

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrBackendNotFound is returned when no candidate location holds the backend.
var ErrBackendNotFound = errors.New("backend executable not found")

// makeExecutable is swapped in tests to simulate a chmod failure.
var makeExecutable = ensureExecutable

// Locator resolves the backend path. ExeDir is tried first, then ResourceDir.
type Locator struct {
	ExeDir      string
	ResourceDir string
	Logger      *slog.Logger
}

// New returns a Locator rooted at the running executable's directory with the
// packaged resource directory for the current OS.
func New(appName string, logger *slog.Logger) (*Locator, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	dir := filepath.Dir(exe)
	return &Locator{
		ExeDir:      dir,
		ResourceDir: DefaultResourceDir(dir, runtime.GOOS, appName),
		Logger:      logger,
	}, nil
}

// DefaultResourceDir mirrors where installers place bundled resources:
// Contents/Resources on macOS, ../lib/<app> on Linux, and a resources
// folder beside the executable on Windows.
func DefaultResourceDir(exeDir, goos, appName string) string {
	switch goos {
	case "darwin":
		return filepath.Join(exeDir, "..", "Resources")
	case "windows":
		return filepath.Join(exeDir, "resources")
	default:
		return filepath.Join(exeDir, "..", "lib", appName)
	}
}

// Resolve returns the first existing candidate for name. On POSIX systems a
// file without any execute bit gets 0o755 added; failure to do so is logged
// and left for the spawn to surface.
func (l *Locator) Resolve(name string) (string, error) {
	name = executableName(name, runtime.GOOS)
	var tried []string
	for _, dir := range []string{l.ExeDir, l.ResourceDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		tried = append(tried, candidate)
		fi, err := os.Stat(candidate)
		if err != nil || fi.IsDir() {
			continue
		}
		if err := makeExecutable(candidate, fi.Mode()); err != nil {
			l.logger().Warn("failed to repair backend permissions", "path", candidate, "error", err)
		}
		return filepath.Clean(candidate), nil
	}
	return "", fmt.Errorf("%w: %s (tried %s)", ErrBackendNotFound, name, strings.Join(tried, ", "))
}

func (l *Locator) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// executableName appends .exe on Windows when name has no extension.
func executableName(name, goos string) string {
	if goos == "windows" && filepath.Ext(name) == "" {
		return name + ".exe"
	}
	return name
}
