package journal

import (
	"context"
	"log/slog"

	"github.com/minhpq/funnel/internal/core/domain"
	"github.com/minhpq/funnel/internal/flatten"
	"github.com/minhpq/funnel/internal/policy"
)

// RecordingObserver subscribes a Journal to a flattening run. Every
// non-abort consultation becomes a journal entry; aborts are left out
// because their error already surfaces as the run's terminal fault. A
// failing journal never fails the run, it only logs.
type RecordingObserver struct {
	ctx   context.Context
	j     Journal
	runID domain.RunID
	feed  string
}

// NewObserver binds j to one run. The context is held for the run's
// lifetime since observer callbacks carry none.
func NewObserver(ctx context.Context, j Journal, runID domain.RunID, feed string) *RecordingObserver {
	if ctx == nil {
		ctx = context.Background()
	}
	return &RecordingObserver{ctx: ctx, j: j, runID: runID, feed: feed}
}

func (o *RecordingObserver) OnTransition(flatten.Transition) {}

func (o *RecordingObserver) OnConsultation(c flatten.Consultation) {
	if c.Decision == policy.KindAbort {
		return
	}

	e := NewEntry(o.runID, o.feed, failureLevel(c.Level), c.Decision.String(), c.Err.Error())
	e.At = c.At

	if err := o.j.Record(o.ctx, e); err != nil {
		slog.Warn("Failed to journal recovered fault",
			"feed", o.feed,
			"run", string(o.runID),
			"error", err,
		)
	}
}

func failureLevel(l flatten.Level) domain.FailureLevel {
	if l == flatten.LevelOuter {
		return domain.FailureLevelOuter
	}
	return domain.FailureLevelInner
}
