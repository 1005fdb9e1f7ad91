package process

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/libershare/launcher/internal/metrics"
	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// Backend is the single running backend process. Only the monitor goroutine
// calls cmd.Wait; everyone else waits on Done.
type Backend struct {
	spec   Spec
	cmd    *exec.Cmd
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	pid       int
	startedAt time.Time
	stoppedAt time.Time
	exitErr   error

	done        chan struct{} // closed once cmd.Wait returns
	readers     sync.WaitGroup
	readersDone chan struct{} // closed once both stream readers return
}

func newBackend(spec Spec, logger *slog.Logger) *Backend {
	return &Backend{
		spec:        spec.clone(),
		logger:      logger.With("backend", spec.label()),
		state:       StateUnspawned,
		done:        make(chan struct{}),
		readersDone: make(chan struct{}),
	}
}

// start creates the child. In debug mode stdout/stderr are os.Pipe pairs so
// the reaper never waits on readers; otherwise they go to the null device.
func (b *Backend) start(sink Sink) error {
	b.setState(StateSpawning)
	cmd := b.spec.BuildCommand()
	configureSysProcAttr(cmd, b.spec.Debug)

	var (
		readEnds  []*os.File
		writeEnds []*os.File
	)
	closeAll := func(fs []*os.File) {
		for _, f := range fs {
			_ = f.Close()
		}
	}
	if b.spec.Debug {
		for range 2 {
			r, w, err := os.Pipe()
			if err != nil {
				closeAll(readEnds)
				closeAll(writeEnds)
				return fmt.Errorf("%w: %w", ErrSpawnFailed, err)
			}
			readEnds = append(readEnds, r)
			writeEnds = append(writeEnds, w)
		}
		cmd.Stdout = writeEnds[0]
		cmd.Stderr = writeEnds[1]
	}

	if err := cmd.Start(); err != nil {
		closeAll(readEnds)
		closeAll(writeEnds)
		close(b.readersDone)
		b.mu.Lock()
		b.exitErr = err
		b.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrSpawnFailed, err)
	}
	// The child holds its own copies of the write ends.
	closeAll(writeEnds)

	b.mu.Lock()
	b.cmd = cmd
	b.pid = cmd.Process.Pid
	b.startedAt = time.Now()
	b.mu.Unlock()
	b.setState(StateRunning)

	if b.spec.Debug {
		b.readers.Add(2)
		go b.read(Stdout, readEnds[0], sink)
		go b.read(Stderr, readEnds[1], sink)
		go func() {
			b.readers.Wait()
			close(b.readersDone)
		}()
	} else {
		close(b.readersDone)
	}
	go b.monitor()
	return nil
}

// monitor reaps the child and records how it ended.
func (b *Backend) monitor() {
	err := b.cmd.Wait()
	b.mu.Lock()
	b.exitErr = err
	b.stoppedAt = time.Now()
	to := StateExited
	if b.state == StateTerminating {
		to = StateTerminated
	}
	from, ok := b.transitionLocked(to)
	pid := b.pid
	b.mu.Unlock()
	if ok {
		b.recordTransition(from, to)
	}
	if to == StateExited {
		b.logger.Info("backend terminated", "pid", pid, "status", exitStatus(err))
	}
	close(b.done)
}

// terminate force-kills the backend and blocks until it is reaped or timeout
// elapses. A backend that already exited on its own is not an error.
func (b *Backend) terminate(timeout time.Duration) error {
	b.mu.Lock()
	state := b.state
	if state == StateRunning {
		_, _ = b.transitionLocked(StateTerminating)
	}
	b.mu.Unlock()

	switch state {
	case StateRunning:
		b.recordTransition(StateRunning, StateTerminating)
		if err := killTree(b.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
			b.logger.Debug("kill returned error", "pid", b.PID(), "error", err)
		}
	case StateExited:
		b.logger.Debug("backend already exited before terminate", "pid", b.PID())
		metrics.IncTerminate(b.spec.label(), "already_exited")
		return nil
	case StateUnspawned, StateSpawning:
		return nil
	}

	if timeout <= 0 {
		<-b.done
	} else {
		select {
		case <-b.done:
		case <-time.After(timeout):
			metrics.IncTerminate(b.spec.label(), "timeout")
			return fmt.Errorf("%w after %s (pid %d)", ErrTerminateTimeout, timeout, b.PID())
		}
	}
	metrics.IncTerminate(b.spec.label(), "killed")
	return nil
}

func (b *Backend) setState(to State) {
	b.mu.Lock()
	from, ok := b.transitionLocked(to)
	b.mu.Unlock()
	if ok {
		b.recordTransition(from, to)
	}
}

// transitionLocked moves to the next state if the move is forward.
// b.mu must be held.
func (b *Backend) transitionLocked(to State) (State, bool) {
	from := b.state
	if !canTransition(from, to) {
		return from, false
	}
	b.state = to
	return from, true
}

func (b *Backend) recordTransition(from, to State) {
	name := b.spec.label()
	metrics.RecordStateTransition(name, from.String(), to.String())
	metrics.SetCurrentState(name, from.String(), false)
	metrics.SetCurrentState(name, to.String(), true)
}

// Spec returns the launch configuration.
func (b *Backend) Spec() Spec { return b.spec.clone() }

func (b *Backend) PID() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pid
}

func (b *Backend) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Done is closed once the process has been reaped.
func (b *Backend) Done() <-chan struct{} { return b.done }

// ReadersDone is closed once both output readers have returned. Outside debug
// mode it is closed immediately.
func (b *Backend) ReadersDone() <-chan struct{} { return b.readersDone }

// ExitErr returns the error from cmd.Wait, or nil while running.
func (b *Backend) ExitErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exitErr
}

// Alive asks the OS for the child's pid; a reaped child is never alive.
func (b *Backend) Alive() bool {
	b.mu.Lock()
	pid, state := b.pid, b.state
	b.mu.Unlock()
	if pid <= 0 || state.IsTerminal() {
		return false
	}
	ok, err := gopsproc.PidExists(int32(pid))
	return err == nil && ok
}

// Snapshot returns a copy of the current status.
func (b *Backend) Snapshot() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		Name:      b.spec.label(),
		PID:       b.pid,
		State:     b.state.String(),
		StartedAt: b.startedAt,
		StoppedAt: b.stoppedAt,
		ExitErr:   b.exitErr,
	}
}

func exitStatus(err error) string {
	if err == nil {
		return "exit status 0"
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ProcessState.String()
	}
	if errors.Is(err, io.ErrClosedPipe) {
		return "pipe closed"
	}
	return err.Error()
}
