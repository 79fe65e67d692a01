// Package metrics provides in-memory runtime statistics for the
// understanding engine.
package metrics

import (
	"math"
	"sync"
	"time"
)

// Collaborator operation names for the collector.
const (
	OpWeatherForecast = "weather_forecast"
	OpCalendarCall    = "calendar_call"
)

// OperationMetrics holds aggregated timings for a collaborator operation.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64
}

// Snapshot represents the full engine statistics at a point in time.
type Snapshot struct {
	UptimeSeconds   float64
	Turns           int64
	TurnsByIntent   map[string]int64
	FailuresByKind  map[string]int64
	WeatherForecast *OperationSnapshot
	CalendarCall    *OperationSnapshot
}

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time

	turns          int64
	turnsByIntent  map[string]int64
	failuresByKind map[string]int64
	ops            map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime:      time.Now(),
		turnsByIntent:  make(map[string]int64),
		failuresByKind: make(map[string]int64),
		ops:            make(map[string]*OperationMetrics),
	}
}

// RecordTurn counts one processed turn. failureKind is "" for successful
// turns.
func (c *Collector) RecordTurn(intent, failureKind string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns++
	c.turnsByIntent[intent]++
	if failureKind != "" {
		c.failuresByKind[failureKind]++
	}
}

// RecordCollaborator records timing for an external collaborator call.
func (c *Collector) RecordCollaborator(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}

	m.Count++
	m.TotalTime += duration
	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}
	return &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byIntent := make(map[string]int64, len(c.turnsByIntent))
	for k, v := range c.turnsByIntent {
		byIntent[k] = v
	}
	byKind := make(map[string]int64, len(c.failuresByKind))
	for k, v := range c.failuresByKind {
		byKind[k] = v
	}

	return Snapshot{
		UptimeSeconds:   time.Since(c.startTime).Seconds(),
		Turns:           c.turns,
		TurnsByIntent:   byIntent,
		FailuresByKind:  byKind,
		WeatherForecast: snapshotOp(c.ops[OpWeatherForecast]),
		CalendarCall:    snapshotOp(c.ops[OpCalendarCall]),
	}
}
