// Package sink is the delivery boundary of a run: flattened output leaves
// the process through a Sink.
//
// Drain owns the handoff discipline. Whatever way a run ends, the sink is
// flushed and closed exactly once, never before the last append, and a
// failing sink never leaks the stream it was fed from.
package sink

// Sink receives encoded output. Append may buffer; Flush makes everything
// appended so far durable; Close releases the sink. Drain guarantees Flush
// and Close are each called at most once, after the final Append.
type Sink interface {
	Append(p []byte) error
	Flush() error
	Close() error
}

// OpError reports a failed sink operation.
type OpError struct {
	Op  string // "append", "flush" or "close"
	Err error
}

func (e *OpError) Error() string {
	return "sink " + e.Op + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}
