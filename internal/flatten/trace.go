package flatten

import (
	"fmt"
	"strings"
	"sync"
)

// TraceRecorder captures a textual trail of a run, one line per transition
// or consultation, in the order they happened. Timestamps are left out so
// traces compare stable across runs.
type TraceRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *TraceRecorder) OnTransition(t Transition) {
	r.record(fmt.Sprintf("state %s -> %s (%s)", t.From, t.To, t.Reason))
}

func (r *TraceRecorder) OnConsultation(c Consultation) {
	line := fmt.Sprintf("%s fault %q -> %s", c.Level, c.Err, c.Decision)
	if c.Coerced {
		line += " (coerced)"
	}
	r.record(line)
}

func (r *TraceRecorder) record(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

// Lines returns a copy of the trail so far.
func (r *TraceRecorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Dump renders the trail as one newline-terminated block.
func (r *TraceRecorder) Dump() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lines) == 0 {
		return ""
	}
	return strings.Join(r.lines, "\n") + "\n"
}
