package monitoring

import (
	"sync"
	"time"
)

// RouteStats summarizes requests handled for one route.
type RouteStats struct {
	Count     int64         `json:"count"`
	Errors    int64         `json:"errors"`
	AvgMillis float64       `json:"avg_ms"`
	Max       time.Duration `json:"-"`
	MaxMillis float64       `json:"max_ms"`
}

// RequestMetrics is a mutex-guarded per-route counter set. It is
// deliberately small; there is no external metrics backend.
type RequestMetrics struct {
	mu     sync.RWMutex
	routes map[string]*routeAccumulator
	start  time.Time
}

type routeAccumulator struct {
	count  int64
	errors int64
	total  time.Duration
	max    time.Duration
}

func NewRequestMetrics() *RequestMetrics {
	return &RequestMetrics{
		routes: make(map[string]*routeAccumulator),
		start:  time.Now(),
	}
}

// Record registers one handled request. Statuses >= 500 count as
// errors; client errors are the caller's problem.
func (m *RequestMetrics) Record(route string, status int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.routes[route]
	if !ok {
		acc = &routeAccumulator{}
		m.routes[route] = acc
	}
	acc.count++
	if status >= 500 {
		acc.errors++
	}
	acc.total += duration
	if duration > acc.max {
		acc.max = duration
	}
}

// Snapshot returns a copy of the current stats.
func (m *RequestMetrics) Snapshot() map[string]RouteStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]RouteStats, len(m.routes))
	for route, acc := range m.routes {
		stats := RouteStats{
			Count:  acc.count,
			Errors: acc.errors,
			Max:    acc.max,
		}
		if acc.count > 0 {
			stats.AvgMillis = float64(acc.total.Microseconds()) / float64(acc.count) / 1000
		}
		stats.MaxMillis = float64(acc.max.Microseconds()) / 1000
		result[route] = stats
	}
	return result
}

// Uptime reports how long the collector has been running.
func (m *RequestMetrics) Uptime() time.Duration {
	return time.Since(m.start)
}
