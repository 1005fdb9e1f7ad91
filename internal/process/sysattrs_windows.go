//go:build windows

package process

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// configureSysProcAttr hides the backend's console window unless debug output
// is being captured.
func configureSysProcAttr(cmd *exec.Cmd, debug bool) {
	attrs := &syscall.SysProcAttr{}
	if !debug {
		attrs.CreationFlags = windows.CREATE_NO_WINDOW
		attrs.HideWindow = true
	}
	cmd.SysProcAttr = attrs
}
