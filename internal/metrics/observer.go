package metrics

import (
	"github.com/minhpq/funnel/internal/flatten"
	"github.com/minhpq/funnel/internal/policy"
)

// RunObserver feeds the registry from one run's lifecycle: the inner-stream
// gauge follows the state machine, recovered faults count per decision.
type RunObserver struct {
	feed string
}

func NewRunObserver(feed string) *RunObserver {
	return &RunObserver{feed: feed}
}

func (o *RunObserver) OnTransition(t flatten.Transition) {
	switch {
	case t.To == flatten.StateConsumingInner:
		ActiveInnerStreams.WithLabelValues(o.feed).Set(1)
	case t.From == flatten.StateConsumingInner:
		ActiveInnerStreams.WithLabelValues(o.feed).Set(0)
	}
}

func (o *RunObserver) OnConsultation(c flatten.Consultation) {
	if c.Decision == policy.KindAbort {
		return
	}
	ErrorsRecovered.WithLabelValues(o.feed, string(c.Level), c.Decision.String()).Inc()
}
