package app

import "fmt"

// Stage names a startup step.
type Stage string

const (
	StagePort    Stage = "port"
	StageDataDir Stage = "datadir"
	StageLocate  Stage = "locate"
	StageEnv     Stage = "env"
	StageSpec    Stage = "spec"
	StageSpawn   Stage = "spawn"
)

// StartupError is fatal: the launcher cannot run without a backend.
type StartupError struct {
	Stage Stage
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup failed at %s: %v", e.Stage, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }
