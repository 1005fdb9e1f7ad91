//go:build windows

package locator

import "os"

// ensureExecutable is a no-op: Windows has no execute permission bits.
func ensureExecutable(string, os.FileMode) error { return nil }
