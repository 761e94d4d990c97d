package observability

import (
	"sort"
	"sync"
	"time"
)

// Metrics aggregates HTTP request counts and latencies per route.
type Metrics struct {
	mu     sync.Mutex
	routes map[string]*routeMetrics
}

type routeMetrics struct {
	count         int64
	errors        int64
	totalDuration time.Duration
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{routes: make(map[string]*routeMetrics)}
}

// RecordRequest records a finished request. Status codes of 500 and above
// count as errors.
func (m *Metrics) RecordRequest(route string, status int, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm, ok := m.routes[route]
	if !ok {
		rm = &routeMetrics{}
		m.routes[route] = rm
	}
	rm.count++
	rm.totalDuration += d
	if status >= 500 {
		rm.errors++
	}
}

// RouteSnapshot represents metrics for a specific route.
type RouteSnapshot struct {
	Route             string `json:"route"`
	Count             int64  `json:"count"`
	Errors            int64  `json:"errors"`
	AverageDurationMs int64  `json:"averageDurationMs"`
}

// Snapshot returns per-route metrics sorted by route.
func (m *Metrics) Snapshot() []RouteSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshots := make([]RouteSnapshot, 0, len(m.routes))
	for route, rm := range m.routes {
		s := RouteSnapshot{Route: route, Count: rm.count, Errors: rm.errors}
		if rm.count > 0 {
			s.AverageDurationMs = (rm.totalDuration / time.Duration(rm.count)).Milliseconds()
		}
		snapshots = append(snapshots, s)
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Route < snapshots[j].Route })
	return snapshots
}
