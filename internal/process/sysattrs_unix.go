//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr places the backend in its own process group so a kill
// also reaches anything it forked.
func configureSysProcAttr(cmd *exec.Cmd, _ bool) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
