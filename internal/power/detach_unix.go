//go:build !windows

package power

import (
	"os/exec"
	"syscall"
)

// configureDetached starts the helper in a new session so it survives the
// launcher's exit.
func configureDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
