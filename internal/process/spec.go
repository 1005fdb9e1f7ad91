package process

import (
	"errors"
	"os/exec"
	"slices"
	"strconv"
	"strings"
)

// Spec describes how the backend is launched. It is computed once at startup
// and copied into the Backend; later changes to the caller's value have no effect.
type Spec struct {
	Name    string   `json:"name"`     // label used in logs and metrics
	Path    string   `json:"path"`     // resolved executable path
	DataDir string   `json:"data_dir"` // passed as --datadir
	Port    uint16   `json:"port"`     // passed as --port
	Env     []string `json:"env"`      // full child environment; empty inherits the launcher's
	Debug   bool     `json:"debug"`    // pipe and stream stdout/stderr
}

// Validate checks the fields the backend cannot run without.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Path) == "" {
		return errors.New("backend path is required")
	}
	if strings.TrimSpace(s.DataDir) == "" {
		return errors.New("data dir is required")
	}
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

// Args returns the backend's command line: exactly --datadir and --port.
func (s Spec) Args() []string {
	return []string{"--datadir", s.DataDir, "--port", strconv.Itoa(int(s.Port))}
}

// BuildCommand constructs the *exec.Cmd for the backend. Stdin is left nil so
// the child reads from the null device.
func (s Spec) BuildCommand() *exec.Cmd {
	// #nosec G204
	cmd := exec.Command(s.Path, s.Args()...)
	if len(s.Env) > 0 {
		cmd.Env = slices.Clone(s.Env)
	}
	return cmd
}

func (s Spec) clone() Spec {
	s.Env = slices.Clone(s.Env)
	return s
}

func (s Spec) label() string {
	if s.Name != "" {
		return s.Name
	}
	return "backend"
}
