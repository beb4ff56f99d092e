package flatten

import (
	"errors"
	"time"
)

// State identifies where a flattening run currently is.
type State string

const (
	// StateIdle: flattener built, nothing pulled yet.
	StateIdle State = "idle"
	// StateAwaitingOuter: no inner stream held, next pull goes to the outer.
	StateAwaitingOuter State = "awaiting_outer"
	// StateConsumingInner: exactly one inner stream held and being drained.
	StateConsumingInner State = "consuming_inner"
	// StateDraining: releasing held streams on the way to a terminal state.
	StateDraining State = "draining"
	// StateCompleted: outer and final inner both ended. Terminal.
	StateCompleted State = "completed"
	// StateFailed: an error was ruled fatal. Terminal.
	StateFailed State = "failed"
	// StateCancelled: stopped by context cancellation or Close. Terminal.
	StateCancelled State = "cancelled"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// ValidTransitions defines allowed state transitions.
// Key is the current state, value is the list of valid next states.
var ValidTransitions = map[State][]State{
	StateIdle:           {StateAwaitingOuter, StateDraining},
	StateAwaitingOuter:  {StateConsumingInner, StateDraining},
	StateConsumingInner: {StateAwaitingOuter, StateDraining},
	StateDraining:       {StateCompleted, StateFailed, StateCancelled},
	// Terminal states have no exits.
	StateCompleted: {},
	StateFailed:    {},
	StateCancelled: {},
}

// CanTransition checks if a transition from one state to another is valid.
func CanTransition(from, to State) bool {
	validTargets, ok := ValidTransitions[from]
	if !ok {
		return false
	}

	for _, target := range validTargets {
		if target == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a run in this state can never move again.
func IsTerminal(s State) bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Transition represents a state change with metadata.
type Transition struct {
	From      State
	To        State
	Reason    string
	Timestamp time.Time
}

// NewTransition creates a new transition record.
func NewTransition(from, to State, reason string) Transition {
	return Transition{
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// IsValid returns true if this transition is allowed by the state machine.
func (t Transition) IsValid() bool {
	return CanTransition(t.From, t.To)
}

// StateDescription returns a human-readable description of a state.
func StateDescription(s State) string {
	switch s {
	case StateIdle:
		return "Idle - flattener created, not yet pulled"
	case StateAwaitingOuter:
		return "Awaiting outer - ready to pull the next outer item"
	case StateConsumingInner:
		return "Consuming inner - draining one inner stream"
	case StateDraining:
		return "Draining - releasing held streams before settling"
	case StateCompleted:
		return "Completed - all streams exhausted"
	case StateFailed:
		return "Failed - stopped by an unrecovered error"
	case StateCancelled:
		return "Cancelled - stopped by the caller"
	default:
		return "Unknown state"
	}
}
