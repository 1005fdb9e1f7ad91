package power

import (
	"fmt"
	"strconv"
)

// WindowsCommand blocks on Wait-Process for pid, then calls shutdown.exe.
func WindowsCommand(action Action, pid int) []string {
	flag := "/s"
	if action == Restart {
		flag = "/r"
	}
	script := fmt.Sprintf("Wait-Process -Id %d -ErrorAction SilentlyContinue; shutdown.exe %s /t 0", pid, flag)
	return []string{"powershell.exe", "-NoProfile", "-NonInteractive", "-WindowStyle", "Hidden", "-Command", script}
}

// LinuxCommand polls until pid is gone, then tries systemctl, the shutdown
// utility and finally sudo -n, each only when the previous one is missing.
// sudo runs non-interactively: without passwordless rules it fails and the
// power action does not happen.
func LinuxCommand(action Action, pid int) []string {
	verb, flag := "poweroff", "-h"
	if action == Restart {
		verb, flag = "reboot", "-r"
	}
	script := "while kill -0 " + strconv.Itoa(pid) + " 2>/dev/null; do sleep 0.2; done; " +
		"if command -v systemctl >/dev/null 2>&1; then systemctl " + verb + "; " +
		"elif command -v shutdown >/dev/null 2>&1; then shutdown " + flag + " now; " +
		"else sudo -n shutdown " + flag + " now; fi"
	return []string{"/bin/sh", "-c", script}
}

// DarwinCommand asks System Events directly; pid is unused.
func DarwinCommand(action Action, _ int) []string {
	verb := "shut down"
	if action == Restart {
		verb = "restart"
	}
	return []string{"osascript", "-e", `tell application "System Events" to ` + verb}
}
