// Package detector finds a backend left running by an earlier launcher run.
//
// After spawning, the launcher records the backend pid and its start time in
// a pid file inside the data directory. On the next start a record whose
// process still exists with the same start time is a stale backend; a
// matching pid with a different start time is an unrelated process that
// reused the pid.
package detector

// Detector reports whether a process is running.
// It must be safe for concurrent use.
type Detector interface {
	Alive() (bool, error)
	Describe() string
}
