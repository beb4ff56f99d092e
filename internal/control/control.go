// Package control assembles configured feeds into runs and drains them
// strictly one at a time.
package control

import (
	"sync/atomic"

	"github.com/minhpq/funnel/internal/flatten"
	"github.com/minhpq/funnel/internal/metrics"
	"github.com/minhpq/funnel/internal/policy"
	"github.com/minhpq/funnel/internal/sink"
)

// countingSink forwards to the real sink and counts delivered events.
type countingSink struct {
	dst  sink.Sink
	feed string
	n    int64
}

func (s *countingSink) Append(p []byte) error {
	if err := s.dst.Append(p); err != nil {
		return err
	}
	s.n++
	metrics.EventsForwarded.WithLabelValues(s.feed).Inc()
	return nil
}

func (s *countingSink) Flush() error { return s.dst.Flush() }
func (s *countingSink) Close() error { return s.dst.Close() }

// recoveryCounter tallies policy decisions that kept a run alive.
type recoveryCounter struct {
	n atomic.Int64
}

func (c *recoveryCounter) OnTransition(flatten.Transition) {}

func (c *recoveryCounter) OnConsultation(con flatten.Consultation) {
	if con.Decision != policy.KindAbort {
		c.n.Add(1)
	}
}
