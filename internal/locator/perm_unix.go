//go:build !windows

package locator

import "os"

// ensureExecutable adds owner/group/other execute bits when none are set.
// Some archive formats drop them on extraction.
func ensureExecutable(path string, mode os.FileMode) error {
	if mode.Perm()&0o111 != 0 {
		return nil
	}
	return os.Chmod(path, mode.Perm()|0o755)
}
