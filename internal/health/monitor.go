package health

import (
	"context"
	"sync"

	"github.com/minhpq/funnel/internal/core/domain"
)

// Run states tracked per feed.
const (
	RunStatePending   = "pending"
	RunStateRunning   = "running"
	RunStateCompleted = "completed"
	RunStateFailed    = "failed"
	RunStateCancelled = "cancelled"
)

type feedRecord struct {
	state     string
	events    int64
	recovered int64
	lastErr   error
}

// Monitor aggregates health status across configured feeds. The runner
// reports run lifecycle events, the monitor evaluates them on demand.
type Monitor struct {
	mu    sync.RWMutex
	feeds map[string]*feedRecord
	order []string
}

// NewMonitor creates a monitor seeded with the configured feed names.
func NewMonitor(feeds []string) *Monitor {
	m := &Monitor{feeds: make(map[string]*feedRecord, len(feeds))}
	for _, name := range feeds {
		m.feeds[name] = &feedRecord{state: RunStatePending}
		m.order = append(m.order, name)
	}
	return m
}

// RunStarted marks a feed as actively draining.
func (m *Monitor) RunStarted(feed string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(feed).state = RunStateRunning
}

// RunFinished records the outcome of a completed run.
func (m *Monitor) RunFinished(report domain.RunReport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.record(report.Feed)
	rec.events = report.Events
	rec.recovered = report.Recovered
	rec.lastErr = report.Err

	switch report.Outcome {
	case domain.OutcomeFailed:
		rec.state = RunStateFailed
	case domain.OutcomeCancelled:
		rec.state = RunStateCancelled
	default:
		rec.state = RunStateCompleted
	}
}

// record returns the tracked entry for a feed, creating it on first use.
// Callers must hold the write lock.
func (m *Monitor) record(feed string) *feedRecord {
	rec, ok := m.feeds[feed]
	if !ok {
		rec = &feedRecord{state: RunStatePending}
		m.feeds[feed] = rec
		m.order = append(m.order, feed)
	}
	return rec
}

// CheckHealth evaluates the current health of every tracked feed.
func (m *Monitor) CheckHealth(ctx context.Context) map[string]FeedHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report := make(map[string]FeedHealth, len(m.feeds))
	for name, rec := range m.feeds {
		health := FeedHealth{
			Feed:      name,
			Status:    StatusHealthy,
			RunState:  rec.state,
			Events:    rec.events,
			Recovered: rec.recovered,
		}
		if rec.lastErr != nil {
			health.LastError = rec.lastErr.Error()
		}

		// Evaluate status: a failed run is critical, recovered faults or a
		// cancelled run mean the output may be incomplete.
		if rec.state == RunStateFailed {
			health.Status = StatusCritical
		} else if rec.recovered > 0 || rec.state == RunStateCancelled {
			health.Status = StatusDegraded
		}

		report[name] = health
	}
	return report
}

// Feeds returns the tracked feed names in registration order.
func (m *Monitor) Feeds() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}
