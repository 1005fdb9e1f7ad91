package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	backendSpawns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launcher",
			Subsystem: "backend",
			Name:      "spawns_total",
			Help:      "Number of successful backend spawns.",
		}, []string{"name"},
	)
	backendSpawnFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launcher",
			Subsystem: "backend",
			Name:      "spawn_failures_total",
			Help:      "Number of backend spawns the OS refused.",
		}, []string{"name"},
	)
	backendTerminations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launcher",
			Subsystem: "backend",
			Name:      "terminations_total",
			Help:      "Terminate outcomes: killed, already_exited, timeout.",
		}, []string{"name", "result"},
	)
	outputLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launcher",
			Subsystem: "backend",
			Name:      "output_lines_total",
			Help:      "Backend output lines forwarded to the event sink.",
		}, []string{"name", "stream"},
	)
	droppedLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launcher",
			Subsystem: "backend",
			Name:      "dropped_lines_total",
			Help:      "Backend output lines dropped (decode failure or full subscriber buffer).",
		}, []string{"name", "stream", "reason"},
	)
	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launcher",
			Subsystem: "backend",
			Name:      "state_transitions_total",
			Help:      "Number of backend lifecycle state transitions.",
		}, []string{"name", "from", "to"},
	)
	currentStates = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "launcher",
			Subsystem: "backend",
			Name:      "current_state",
			Help:      "Current backend state (1 = active state, 0 = inactive).",
		}, []string{"name", "state"},
	)
	powerActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launcher",
			Subsystem: "power",
			Name:      "actions_total",
			Help:      "Power actions requested, by outcome: started, unavailable, failed.",
		}, []string{"action", "result"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{backendSpawns, backendSpawnFailures, backendTerminations, outputLines, droppedLines, stateTransitions, currentStates, powerActions}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// HandlerFor serves metrics from a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncSpawn(name string) {
	if regOK.Load() {
		backendSpawns.WithLabelValues(name).Inc()
	}
}

func IncSpawnFailure(name string) {
	if regOK.Load() {
		backendSpawnFailures.WithLabelValues(name).Inc()
	}
}

func IncTerminate(name, result string) {
	if regOK.Load() {
		backendTerminations.WithLabelValues(name, result).Inc()
	}
}

func IncLine(name, stream string) {
	if regOK.Load() {
		outputLines.WithLabelValues(name, stream).Inc()
	}
}

func IncDroppedLine(name, stream, reason string) {
	if regOK.Load() {
		droppedLines.WithLabelValues(name, stream, reason).Inc()
	}
}

func RecordStateTransition(name, from, to string) {
	if regOK.Load() {
		stateTransitions.WithLabelValues(name, from, to).Inc()
	}
}

func SetCurrentState(name, state string, active bool) {
	if regOK.Load() {
		var value float64
		if active {
			value = 1
		}
		currentStates.WithLabelValues(name, state).Set(value)
	}
}

func IncPowerAction(action, result string) {
	if regOK.Load() {
		powerActions.WithLabelValues(action, result).Inc()
	}
}
