package process

// State is the lifecycle position of the supervised backend.
// Transitions only move forward: Unspawned → Spawning → Running →
// {Terminating → Terminated | Exited}.
type State int

const (
	StateUnspawned State = iota
	StateSpawning
	StateRunning
	StateTerminating
	StateTerminated
	StateExited
)

func (s State) String() string {
	switch s {
	case StateUnspawned:
		return "unspawned"
	case StateSpawning:
		return "spawning"
	case StateRunning:
		return "running"
	case StateTerminating:
		return "terminating"
	case StateTerminated:
		return "terminated"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the process is gone and reaped.
func (s State) IsTerminal() bool {
	return s == StateTerminated || s == StateExited
}

// canTransition reports whether from → to is a legal forward move.
func canTransition(from, to State) bool {
	switch from {
	case StateUnspawned:
		return to == StateSpawning
	case StateSpawning:
		return to == StateRunning || to == StateExited
	case StateRunning:
		return to == StateTerminating || to == StateExited
	case StateTerminating:
		return to == StateTerminated
	default:
		return false
	}
}
