package process

import "errors"

var (
	// ErrSpawnFailed wraps the OS error when the backend cannot be created.
	ErrSpawnFailed = errors.New("failed to spawn backend")
	// ErrAlreadySpawned is returned when the supervisor already holds a backend.
	ErrAlreadySpawned = errors.New("backend already spawned")
	// ErrTerminateTimeout is returned when the OS does not confirm exit in time.
	ErrTerminateTimeout = errors.New("timed out waiting for backend to exit")
)
