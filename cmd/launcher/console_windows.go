//go:build windows

package main

import (
	"os"

	"golang.org/x/sys/windows"
)

const attachParentProcess = ^uintptr(0) // ATTACH_PARENT_PROCESS

var procAttachConsole = windows.NewLazySystemDLL("kernel32.dll").NewProc("AttachConsole")

// attachConsole reconnects stdout and stderr to the console of the process
// that started the launcher, which a GUI-subsystem binary does not get. It
// reports whether the standard handles were replaced.
func attachConsole() bool {
	if err := procAttachConsole.Find(); err != nil {
		return false
	}
	if r, _, _ := procAttachConsole.Call(attachParentProcess); r == 0 {
		return false
	}
	out, err := os.OpenFile("CONOUT$", os.O_RDWR, 0)
	if err != nil {
		return false
	}
	os.Stdout = out
	os.Stderr = out
	return true
}
