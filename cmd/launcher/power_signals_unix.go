//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/libershare/launcher/internal/power"
)

// notifyPowerSignals routes SIGUSR1 (restart) and SIGUSR2 (shutdown) to ch.
func notifyPowerSignals(ch chan<- os.Signal) {
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)
}

func powerActionFor(sig os.Signal) (power.Action, bool) {
	switch sig {
	case syscall.SIGUSR1:
		return power.Restart, true
	case syscall.SIGUSR2:
		return power.Shutdown, true
	}
	return "", false
}
