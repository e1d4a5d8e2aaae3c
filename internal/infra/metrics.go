package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	attemptsTotal atomic.Uint64
	rejectedTotal atomic.Uint64
	settledTotal  atomic.Uint64
	fetchFailures atomic.Uint64

	// Fetch latency tracking
	fetchLatencySumNs atomic.Int64
	fetchLatencyCount atomic.Uint64

	// Gauges
	activeClients atomic.Int32
}

// RecordAttempt records a conversion attempt that passed validation
func (m *Metrics) RecordAttempt() {
	m.attemptsTotal.Add(1)
}

// RecordRejection records an attempt rejected before any fetch
func (m *Metrics) RecordRejection() {
	m.rejectedTotal.Add(1)
}

// RecordSettled records a settled conversion with its fetch latency
func (m *Metrics) RecordSettled(latency time.Duration) {
	m.settledTotal.Add(1)
	m.fetchLatencySumNs.Add(latency.Nanoseconds())
	m.fetchLatencyCount.Add(1)
}

// RecordFetchFailure records a failed settlement fetch
func (m *Metrics) RecordFetchFailure() {
	m.fetchFailures.Add(1)
}

// IncrementClients increments connected event clients by 1
func (m *Metrics) IncrementClients() {
	m.activeClients.Add(1)
}

// DecrementClients decrements connected event clients by 1
func (m *Metrics) DecrementClients() {
	m.activeClients.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics
type MetricsSnapshot struct {
	AttemptsTotal     uint64
	RejectedTotal     uint64
	SettledTotal      uint64
	FetchFailures     uint64
	AvgFetchLatencyNs int64
	ActiveClients     int32
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.fetchLatencyCount.Load()
	if count > 0 {
		avgLatency = m.fetchLatencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		AttemptsTotal:     m.attemptsTotal.Load(),
		RejectedTotal:     m.rejectedTotal.Load(),
		SettledTotal:      m.settledTotal.Load(),
		FetchFailures:     m.fetchFailures.Load(),
		AvgFetchLatencyNs: avgLatency,
		ActiveClients:     m.activeClients.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing)
func (m *Metrics) Reset() {
	m.attemptsTotal.Store(0)
	m.rejectedTotal.Store(0)
	m.settledTotal.Store(0)
	m.fetchFailures.Store(0)
	m.fetchLatencySumNs.Store(0)
	m.fetchLatencyCount.Store(0)
	m.activeClients.Store(0)
}
