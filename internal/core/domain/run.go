package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunID identifies one flattening run.
type RunID string

// NewRunID returns a fresh random run identifier.
func NewRunID() RunID {
	return RunID(uuid.New().String())
}

// Outcome is the terminal result of a run.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// RunReport is the bookkeeping record of one finished run.
type RunReport struct {
	Run       RunID
	Feed      string
	Outcome   Outcome
	Events    int64
	Recovered int64
	Err       error
	Started   time.Time
	Finished  time.Time
}

// Duration is the wall time the run took.
func (r RunReport) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
