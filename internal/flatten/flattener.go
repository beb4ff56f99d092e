// Package flatten merges a stream of streams into one flat stream, one
// inner stream at a time, in order.
//
// The engine pulls one item from the outer stream, opens its inner stream
// through the caller's mapper, drains that inner stream to its end, then
// moves to the next outer item. At no point are two inner streams open at
// once, and the output never interleaves two inner streams. Faults are
// routed through a policy.Policy; every consultation and every state change
// is reported to the run's observers.
package flatten

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minhpq/funnel/internal/core/stream"
	"github.com/minhpq/funnel/internal/policy"
)

// Mapper opens the inner stream for one outer item. A mapper failure is
// treated like an inner stream that faults on its first pull, so the run's
// policy decides what happens next.
type Mapper[O, I any] func(ctx context.Context, item O) (stream.Stream[I], error)

// ErrTimeout marks an inner stream that outlived the per-stream deadline
// set with WithTimeout.
var ErrTimeout = errors.New("inner stream deadline exceeded")

// Flattener drives one flattening run. It implements stream.Stream over
// the inner element type: downstream consumers just pull from it.
//
// A Flattener owns the outer stream and every inner stream it opens; all
// of them are closed by the time it settles in a terminal state. It is
// bound to one run: once Completed, Failed or Cancelled it only answers
// End. Like any stream it must be pulled from a single goroutine.
type Flattener[O, I any] struct {
	outer  stream.Stream[O]
	mapper Mapper[O, I]
	policy policy.Policy[I]

	timeout   time.Duration
	observers []Observer
	now       func() time.Time

	state    State
	inner    stream.Stream[I]
	deadline time.Time

	cause    error
	closeErr error
	closed   bool
}

// New builds a Flattener over outer with the given mapper and policy.
func New[O, I any](
	outer stream.Stream[O],
	mapper Mapper[O, I],
	pol policy.Policy[I],
	opts ...Option,
) *Flattener[O, I] {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	if pol == nil {
		pol = policy.Abort[I]()
	}

	return &Flattener[O, I]{
		outer:     outer,
		mapper:    mapper,
		policy:    pol,
		timeout:   cfg.timeout,
		observers: cfg.observers,
		now:       time.Now,
		state:     StateIdle,
	}
}

// State returns the run's current state.
func (f *Flattener[O, I]) State() State {
	return f.state
}

// Err returns the cause recorded when the run settled in Failed or
// Cancelled, nil otherwise.
func (f *Flattener[O, I]) Err() error {
	return f.cause
}

// Next advances the run until it has one event to hand downstream.
// Within a single call the engine may cross several internal boundaries
// (finish an inner stream, accept the next outer item, open its inner);
// downstream only ever sees the flat sequence of data events, then one
// terminal End or a single terminal Error followed by End forever.
func (f *Flattener[O, I]) Next(ctx context.Context) stream.Event[I] {
	for {
		switch f.state {
		case StateCompleted, StateFailed, StateCancelled:
			return stream.End[I]()

		case StateIdle:
			f.transition(StateAwaitingOuter, "first pull")

		case StateAwaitingOuter:
			if ev, stopped := f.checkCancel(ctx); stopped {
				return ev
			}
			ev := f.outer.Next(ctx)
			if out, stopped := f.checkCancel(ctx); stopped {
				return out
			}
			switch ev.Kind {
			case stream.KindEnd:
				f.drain(StateCompleted, "outer exhausted", nil)
				return stream.End[I]()
			case stream.KindError:
				return f.onOuterError(ev.Err)
			default:
				f.activate(ctx, ev.Value)
			}

		case StateConsumingInner:
			if ev, stopped := f.checkCancel(ctx); stopped {
				return ev
			}
			ev, timedOut := f.pullInner(ctx)
			if out, stopped := f.checkCancel(ctx); stopped {
				return out
			}
			switch ev.Kind {
			case stream.KindEnd:
				f.release("inner exhausted")
			case stream.KindError:
				out, emit := f.onInnerError(ev.Err, timedOut)
				if emit {
					return out
				}
			default:
				return ev
			}

		default:
			f.drain(StateFailed, "unknown state", ErrInvalidTransition)
			return stream.Err[I](ErrInvalidTransition)
		}
	}
}

// Close stops the run and releases every held stream. Closing before a
// terminal state settles the run in Cancelled; no further events are
// emitted, later pulls just answer End. Close is idempotent.
func (f *Flattener[O, I]) Close() error {
	if f.closed {
		return f.closeErr
	}
	f.closed = true
	if !IsTerminal(f.state) {
		f.drain(StateCancelled, "closed by caller", context.Canceled)
	}
	return f.closeErr
}

// onOuterError settles the run after a fault on the outer stream. Outer
// faults are always fatal; the policy is consulted so the decision stays
// observable, but anything besides abort is coerced.
func (f *Flattener[O, I]) onOuterError(cause error) stream.Event[I] {
	d := f.policy.OnOuterError(cause)
	kind, coerced := d.Kind, false
	if kind != policy.KindAbort {
		kind, coerced = policy.KindAbort, true
	}
	f.consulted(LevelOuter, cause, kind, coerced)
	f.drain(StateFailed, "outer fault", cause)
	return stream.Err[I](cause)
}

// onInnerError applies the policy to a fault on the active inner stream.
// The second return value tells the pull loop whether the event should be
// handed downstream (false only for skip, which emits nothing).
func (f *Flattener[O, I]) onInnerError(cause error, timedOut bool) (stream.Event[I], bool) {
	d := f.policy.OnInnerError(cause)
	kind, coerced := d.Kind, false
	if timedOut && kind == policy.KindResume {
		// The stream is past its deadline; pulling it again would only
		// time out once more.
		kind, coerced = policy.KindAbandon, true
	}
	f.consulted(LevelInner, cause, kind, coerced)

	switch kind {
	case policy.KindResume:
		return stream.Data(d.Substitute), true
	case policy.KindAbandon:
		f.release("inner abandoned")
		return stream.Data(d.Substitute), true
	case policy.KindSkip:
		f.release("inner skipped")
		return stream.Event[I]{}, false
	default:
		f.drain(StateFailed, "inner fault", cause)
		return stream.Err[I](cause), true
	}
}

// activate opens the inner stream for an accepted outer item. Mapper
// failures become a single-fault inner so they flow the normal policy path.
func (f *Flattener[O, I]) activate(ctx context.Context, item O) {
	in, err := f.mapper(ctx, item)
	if err != nil {
		in = stream.Fail[I](fmt.Errorf("open inner stream: %w", err))
	} else if in == nil {
		in = stream.Empty[I]()
	}

	f.inner = in
	if f.timeout > 0 {
		f.deadline = f.now().Add(f.timeout)
	}
	f.transition(StateConsumingInner, "outer item accepted")
}

// pullInner pulls the active inner stream, enforcing the per-stream
// deadline when one is configured. The second return value reports whether
// the returned fault was a deadline expiry.
func (f *Flattener[O, I]) pullInner(ctx context.Context) (stream.Event[I], bool) {
	if f.timeout <= 0 {
		return f.inner.Next(ctx), false
	}

	if !f.now().Before(f.deadline) {
		return stream.Err[I](fmt.Errorf("%w (limit %s)", ErrTimeout, f.timeout)), true
	}

	pctx, cancel := context.WithDeadline(ctx, f.deadline)
	ev := f.inner.Next(pctx)
	cancel()

	// A deadline fault surfaced by the inner stream itself is still a
	// timeout, as long as the run's own context is intact.
	if ev.Kind == stream.KindError && ctx.Err() == nil &&
		errors.Is(ev.Err, context.DeadlineExceeded) && !f.now().Before(f.deadline) {
		return stream.Err[I](fmt.Errorf("%w: %w", ErrTimeout, ev.Err)), true
	}
	return ev, false
}

// checkCancel settles the run in Cancelled once the context is done. The
// pull that observes the cancellation returns one terminal Error carrying
// the context's error; everything after that is End.
func (f *Flattener[O, I]) checkCancel(ctx context.Context) (stream.Event[I], bool) {
	err := ctx.Err()
	if err == nil {
		return stream.Event[I]{}, false
	}
	f.drain(StateCancelled, "context cancelled", err)
	return stream.Err[I](err), true
}

// release closes the active inner stream and returns to the outer loop.
func (f *Flattener[O, I]) release(reason string) {
	if f.inner != nil {
		if err := f.inner.Close(); err != nil {
			f.closeErr = errors.Join(f.closeErr, err)
		}
		f.inner = nil
		f.deadline = time.Time{}
	}
	f.transition(StateAwaitingOuter, reason)
}

// drain closes every held stream and settles in the given terminal state.
func (f *Flattener[O, I]) drain(terminal State, reason string, cause error) {
	f.transition(StateDraining, reason)
	if f.inner != nil {
		if err := f.inner.Close(); err != nil {
			f.closeErr = errors.Join(f.closeErr, err)
		}
		f.inner = nil
	}
	if err := f.outer.Close(); err != nil {
		f.closeErr = errors.Join(f.closeErr, err)
	}
	f.cause = cause
	f.transition(terminal, reason)
}

func (f *Flattener[O, I]) transition(to State, reason string) {
	t := NewTransition(f.state, to, reason)
	f.state = to
	for _, o := range f.observers {
		o.OnTransition(t)
	}
}

func (f *Flattener[O, I]) consulted(level Level, cause error, decided policy.Kind, coerced bool) {
	c := Consultation{
		Level:    level,
		Err:      cause,
		Decision: decided,
		Coerced:  coerced,
		At:       f.now(),
	}
	for _, o := range f.observers {
		o.OnConsultation(c)
	}
}
