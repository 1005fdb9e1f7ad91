//go:build windows

package main

import (
	"os"

	"github.com/libershare/launcher/internal/power"
)

// Windows has no user signals; power actions come from the power subcommand
// or a GUI host.
func notifyPowerSignals(chan<- os.Signal) {}

func powerActionFor(os.Signal) (power.Action, bool) { return "", false }
