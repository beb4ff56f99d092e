package flatten

import (
	"log/slog"
	"time"

	"github.com/minhpq/funnel/internal/policy"
)

// Level identifies which stream a fault came from.
type Level string

const (
	LevelOuter Level = "outer"
	LevelInner Level = "inner"
)

// Consultation records one policy consultation: the fault, where it came
// from, and what the run did about it. Decision holds the kind actually
// applied; Coerced is set when the engine overrode the policy's answer
// (substitutes on outer faults, resume on a timed-out inner).
type Consultation struct {
	Level    Level
	Err      error
	Decision policy.Kind
	Coerced  bool
	At       time.Time
}

// Observer receives the full trail of a flattening run. Implementations
// must be cheap; they are called inline from the pull loop.
type Observer interface {
	// OnTransition is called after every state change.
	OnTransition(t Transition)

	// OnConsultation is called after every policy consultation, the
	// recovered and skipped ones included. Faults never bypass it.
	OnConsultation(c Consultation)
}

// LogObserver reports run progress through slog. Transitions log at Debug,
// consultations at Warn so recovered faults stay visible by default.
type LogObserver struct {
	log *slog.Logger
}

// NewLogObserver wraps log; nil falls back to slog.Default.
func NewLogObserver(log *slog.Logger) *LogObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LogObserver{log: log}
}

func (o *LogObserver) OnTransition(t Transition) {
	o.log.Debug("Flatten state changed",
		"from", string(t.From),
		"to", string(t.To),
		"reason", t.Reason,
	)
}

func (o *LogObserver) OnConsultation(c Consultation) {
	o.log.Warn("Recovery decision applied",
		"level", string(c.Level),
		"decision", c.Decision.String(),
		"coerced", c.Coerced,
		"error", c.Err,
	)
}
