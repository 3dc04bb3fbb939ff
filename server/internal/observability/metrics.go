package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics aggregates pipeline counters for one agent process.
type Metrics struct {
	mu sync.Mutex

	mentionsHandled atomic.Int64
	mentionsFailed  atomic.Int64
	ticks           atomic.Int64

	outcomes map[string]*atomic.Int64

	durations    []time.Duration
	maxDurations int
}

// NewMetrics creates a collector keeping the last maxDurations handling times.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		outcomes:     make(map[string]*atomic.Int64),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// RecordTick counts one ingestion tick.
func (m *Metrics) RecordTick() {
	m.ticks.Add(1)
}

// RecordMention records a handled mention with its outcome and duration.
func (m *Metrics) RecordMention(outcome string, duration time.Duration) {
	m.mentionsHandled.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	counter, ok := m.outcomes[outcome]
	if !ok {
		counter = &atomic.Int64{}
		m.outcomes[outcome] = counter
	}
	counter.Add(1)
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
}

// RecordFailure records a mention whose handling failed.
func (m *Metrics) RecordFailure() {
	m.mentionsFailed.Add(1)
}

// Snapshot returns a point-in-time copy of the counters.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	outcomes := make(map[string]int64, len(m.outcomes))
	for name, counter := range m.outcomes {
		outcomes[name] = counter.Load()
	}
	var total time.Duration
	for _, d := range m.durations {
		total += d
	}
	var avg time.Duration
	if len(m.durations) > 0 {
		avg = total / time.Duration(len(m.durations))
	}
	return &MetricsSnapshot{
		Ticks:           m.ticks.Load(),
		MentionsHandled: m.mentionsHandled.Load(),
		MentionsFailed:  m.mentionsFailed.Load(),
		Outcomes:        outcomes,
		AverageDuration: avg,
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	Ticks           int64
	MentionsHandled int64
	MentionsFailed  int64
	Outcomes        map[string]int64
	AverageDuration time.Duration
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	total := s.MentionsHandled + s.MentionsFailed
	if total == 0 {
		return 100.0
	}
	return float64(s.MentionsHandled) / float64(total) * 100.0
}
