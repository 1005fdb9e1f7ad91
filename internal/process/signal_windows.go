//go:build windows

package process

import "os"

// killTree terminates the backend. Windows has no signals; Kill maps to
// TerminateProcess.
func killTree(p *os.Process) error {
	if p == nil {
		return nil
	}
	return p.Kill()
}

func killUnheld(p *os.Process) error { return p.Kill() }
