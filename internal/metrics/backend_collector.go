package metrics

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/process"
)

// BackendCollector samples the backend's resource usage at scrape time.
// PID returns the current backend pid, or 0 when none is running.
type BackendCollector struct {
	Name string
	PID  func() int

	cpu     *prometheus.Desc
	rss     *prometheus.Desc
	threads *prometheus.Desc
}

func NewBackendCollector(name string, pid func() int) *BackendCollector {
	labels := prometheus.Labels{"name": name}
	return &BackendCollector{
		Name:    name,
		PID:     pid,
		cpu:     prometheus.NewDesc("launcher_backend_cpu_percent", "Backend CPU usage percent since start.", nil, labels),
		rss:     prometheus.NewDesc("launcher_backend_memory_rss_bytes", "Backend resident set size.", nil, labels),
		threads: prometheus.NewDesc("launcher_backend_threads", "Backend thread count.", nil, labels),
	}
}

func (c *BackendCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cpu
	ch <- c.rss
	ch <- c.threads
}

// Collect emits nothing when no backend is running.
func (c *BackendCollector) Collect(ch chan<- prometheus.Metric) {
	if c.PID == nil {
		return
	}
	pid := c.PID()
	if pid <= 0 {
		return
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		slog.Debug("Failed to open backend process for metrics", "name", c.Name, "pid", pid, "error", err)
		return
	}
	if cpu, err := p.CPUPercent(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.cpu, prometheus.GaugeValue, cpu)
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		ch <- prometheus.MustNewConstMetric(c.rss, prometheus.GaugeValue, float64(mem.RSS))
	}
	if n, err := p.NumThreads(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.threads, prometheus.GaugeValue, float64(n))
	}
}
