package process

import (
	"errors"
	"os"
)

// KillPID force-kills a backend this supervisor does not hold, such as one
// left running by an earlier launcher run. On Unix its process group goes
// too when the process leads it.
func KillPID(pid int) error {
	if pid <= 0 {
		return errors.New("invalid pid")
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return killUnheld(p)
}
