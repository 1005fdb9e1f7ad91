package process

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/libershare/launcher/internal/metrics"
)

// DefaultTerminateTimeout bounds how long Terminate waits for the OS to
// confirm the killed backend exited.
const DefaultTerminateTimeout = 5 * time.Second

// Supervisor is the sole owner of the backend handle. The handle sits behind
// a mutex and leaves it exactly once through Take, so only one caller ever
// kills it.
type Supervisor struct {
	mu      sync.Mutex
	backend *Backend

	sink             Sink
	logger           *slog.Logger
	terminateTimeout time.Duration
}

type Option func(*Supervisor)

// WithSink sets where debug-mode output lines go.
func WithSink(s Sink) Option {
	return func(sv *Supervisor) {
		if s != nil {
			sv.sink = s
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(sv *Supervisor) {
		if l != nil {
			sv.logger = l
		}
	}
}

// WithTerminateTimeout overrides DefaultTerminateTimeout. Zero waits forever.
func WithTerminateTimeout(d time.Duration) Option {
	return func(sv *Supervisor) { sv.terminateTimeout = d }
}

func NewSupervisor(opts ...Option) *Supervisor {
	s := &Supervisor{
		sink:             discardSink{},
		logger:           slog.Default(),
		terminateTimeout: DefaultTerminateTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Spawn starts the backend described by spec and stores its handle.
func (s *Supervisor) Spawn(spec Spec) (*Backend, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpawnFailed, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend != nil {
		return nil, ErrAlreadySpawned
	}
	b := newBackend(spec, s.logger)
	if err := b.start(s.sink); err != nil {
		metrics.IncSpawnFailure(spec.label())
		return nil, err
	}
	metrics.IncSpawn(spec.label())
	s.logger.Info("backend started", "name", spec.label(), "pid", b.PID(), "port", spec.Port, "debug", spec.Debug)
	s.backend = b
	return b, nil
}

// Store hands an existing backend to the supervisor.
func (s *Supervisor) Store(b *Backend) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend != nil {
		return ErrAlreadySpawned
	}
	s.backend = b
	return nil
}

// Take removes and returns the held backend, or nil if there is none.
func (s *Supervisor) Take() *Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.backend
	s.backend = nil
	return b
}

// Backend returns the held backend without taking it.
func (s *Supervisor) Backend() *Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend
}

// Terminate takes the backend, kills it and waits for it to be reaped.
// With nothing held it is a no-op.
func (s *Supervisor) Terminate() error {
	b := s.Take()
	if b == nil {
		return nil
	}
	s.logger.Info("terminating backend", "pid", b.PID(), "state", b.State().String())
	if err := b.terminate(s.terminateTimeout); err != nil {
		s.logger.Error("backend did not exit", "pid", b.PID(), "error", err)
		return err
	}
	return nil
}
