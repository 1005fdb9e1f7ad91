//go:build !windows

package process

import (
	"os"

	"golang.org/x/sys/unix"
)

// killTree sends SIGKILL to the backend's process group, falling back to the
// single process when the group is already gone.
func killTree(p *os.Process) error {
	if p == nil {
		return nil
	}
	if err := unix.Kill(-p.Pid, unix.SIGKILL); err == nil {
		return nil
	}
	return p.Kill()
}

// killUnheld kills a process this supervisor did not start. Its group is
// killed only when the process leads that group; otherwise -pid could name
// an unrelated group.
func killUnheld(p *os.Process) error {
	if pgid, err := unix.Getpgid(p.Pid); err == nil && pgid == p.Pid {
		if err := unix.Kill(-p.Pid, unix.SIGKILL); err == nil {
			return nil
		}
	}
	return p.Kill()
}
