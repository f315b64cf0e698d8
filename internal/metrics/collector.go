// Package metrics is purely additive instrumentation: it has no effect
// on any operation's return value, and tracks count/min/max/total
// duration per orchestrator operation.
package metrics

import (
	"sync"
	"time"
)

// OperationMetrics accumulates timing for one named operation.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot is a read-only view with derived stats.
type OperationSnapshot struct {
	Name      string        `json:"name"`
	Count     int64         `json:"count"`
	TotalTime time.Duration `json:"totalTimeNs"`
	MinTime   time.Duration `json:"minTimeNs"`
	MaxTime   time.Duration `json:"maxTimeNs"`
	AvgTimeMs float64       `json:"avgTimeMs"`
}

// Collector is a thread-safe registry of OperationMetrics by name.
type Collector struct {
	mu  sync.Mutex
	ops map[string]*OperationMetrics
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{ops: make(map[string]*OperationMetrics)}
}

// Record adds one observed duration for the named operation.
func (c *Collector) Record(name string, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.ops[name]
	if !ok {
		m = &OperationMetrics{MinTime: elapsed, MaxTime: elapsed}
		c.ops[name] = m
	}
	m.Count++
	m.TotalTime += elapsed
	if elapsed < m.MinTime {
		m.MinTime = elapsed
	}
	if elapsed > m.MaxTime {
		m.MaxTime = elapsed
	}
}

// Track wraps fn, recording its elapsed time under name regardless of
// whether it returns an error.
func (c *Collector) Track(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	c.Record(name, time.Since(start))
	return err
}

// Snapshot returns a point-in-time copy of every tracked operation's
// stats, suitable for the stats CLI command.
func (c *Collector) Snapshot() []OperationSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]OperationSnapshot, 0, len(c.ops))
	for name, m := range c.ops {
		var avg float64
		if m.Count > 0 {
			avg = float64(m.TotalTime.Milliseconds()) / float64(m.Count)
		}
		out = append(out, OperationSnapshot{
			Name:      name,
			Count:     m.Count,
			TotalTime: m.TotalTime,
			MinTime:   m.MinTime,
			MaxTime:   m.MaxTime,
			AvgTimeMs: avg,
		})
	}
	return out
}
