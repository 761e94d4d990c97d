package agent

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

const maxLatencySamples = 100

// Metrics collects executor and capability call statistics.
// All operations are safe for concurrent use.
type Metrics struct {
	mu sync.RWMutex

	executions map[string]*counter // by executor tag
	calls      map[string]*counter // by capability name

	transientErrors atomic.Int64
	permanentErrors atomic.Int64
	conflictErrors  atomic.Int64
}

type counter struct {
	total    int64
	failures int64
	latency  []time.Duration
}

func (c *counter) record(d time.Duration, success bool) {
	c.total++
	if !success {
		c.failures++
	}
	if len(c.latency) >= maxLatencySamples {
		c.latency = c.latency[1:]
	}
	c.latency = append(c.latency, d)
}

func (c *counter) stats(name string) Stats {
	s := Stats{Name: name, Total: c.total, Failures: c.failures}
	if c.total > 0 {
		s.SuccessRate = float64(c.total-c.failures) / float64(c.total) * 100
	}
	if n := len(c.latency); n > 0 {
		sorted := slices.Clone(c.latency)
		slices.Sort(sorted)
		var sum time.Duration
		for _, d := range sorted {
			sum += d
		}
		s.AverageLatency = sum / time.Duration(n)
		idx := int(float64(n) * 0.95)
		if idx >= n {
			idx = n - 1
		}
		s.P95Latency = sorted[idx]
	}
	return s
}

// NewMetrics creates an empty collector.
func NewMetrics() *Metrics {
	return &Metrics{
		executions: make(map[string]*counter),
		calls:      make(map[string]*counter),
	}
}

// RecordExecution records a finished executor run.
func (m *Metrics) RecordExecution(tag string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.record(m.executions, tag, d, err)
}

// RecordCall records a capability call.
func (m *Metrics) RecordCall(capability string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.record(m.calls, capability, d, err)
}

func (m *Metrics) record(into map[string]*counter, name string, d time.Duration, err error) {
	if err != nil {
		switch ClassifyError(err) {
		case ErrorClassTransient:
			m.transientErrors.Add(1)
		case ErrorClassConflict:
			m.conflictErrors.Add(1)
		default:
			m.permanentErrors.Add(1)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c := into[name]
	if c == nil {
		c = &counter{}
		into[name] = c
	}
	c.record(d, err == nil)
}

// Stats summarizes one executor or capability.
type Stats struct {
	Name           string        `json:"name"`
	Total          int64         `json:"total"`
	Failures       int64         `json:"failures"`
	SuccessRate    float64       `json:"successRate"`
	AverageLatency time.Duration `json:"averageLatency"`
	P95Latency     time.Duration `json:"p95Latency"`
}

type Summary struct {
	Executors       []Stats `json:"executors"`
	Capabilities    []Stats `json:"capabilities"`
	TransientErrors int64   `json:"transientErrors"`
	PermanentErrors int64   `json:"permanentErrors"`
	ConflictErrors  int64   `json:"conflictErrors"`
}

// Summary returns a snapshot sorted by name.
func (m *Metrics) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Summary{
		Executors:       collect(m.executions),
		Capabilities:    collect(m.calls),
		TransientErrors: m.transientErrors.Load(),
		PermanentErrors: m.permanentErrors.Load(),
		ConflictErrors:  m.conflictErrors.Load(),
	}
}

func collect(from map[string]*counter) []Stats {
	stats := make([]Stats, 0, len(from))
	for name, c := range from {
		stats = append(stats, c.stats(name))
	}
	slices.SortFunc(stats, func(a, b Stats) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return stats
}

// LogSummary logs the current metrics summary.
func (m *Metrics) LogSummary() {
	summary := m.Summary()
	for _, s := range summary.Executors {
		slog.Info("executor_metrics",
			"executor", s.Name,
			"total", s.Total,
			"failures", s.Failures,
			"avg_ms", s.AverageLatency.Milliseconds(),
			"p95_ms", s.P95Latency.Milliseconds(),
		)
	}
	slog.Info("capability_error_summary",
		"transient", summary.TransientErrors,
		"permanent", summary.PermanentErrors,
		"conflict", summary.ConflictErrors,
	)
}
