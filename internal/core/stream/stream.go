// Package stream defines the pull-based event stream the rest of funnel is
// built on, together with constructors, concatenation, element transforms,
// and the left-fold consumer.
//
// A stream is lazy and possibly infinite. It supports at most one consumer;
// restarting means building a fresh stream from its constructor. Pulling the
// next event is the only point at which a stream may block.
package stream

import (
	"context"
	"iter"
)

// Stream is an ordered, lazily produced series of events.
//
// Next returns exactly one event per call. After a KindEnd event, further
// calls keep returning KindEnd. A KindError event does not necessarily end
// the stream: a source that can recover (say, a parser skipping a bad line)
// may produce data again on the following pull. Callers that want fail-fast
// behavior stop at the first error themselves.
//
// Close releases whatever the stream holds open. It is idempotent, and a
// closed stream answers KindEnd to every later pull.
type Stream[T any] interface {
	Next(ctx context.Context) Event[T]
	Close() error
}

// FromSlice returns a stream over the given slice, in order. The slice is
// not copied; it must not be mutated while the stream is consumed.
func FromSlice[T any](items []T) Stream[T] {
	return &sliceStream[T]{items: items}
}

// Of returns a stream over the given values, in order.
func Of[T any](values ...T) Stream[T] {
	return FromSlice(values)
}

// Empty returns a stream that is exhausted from the start.
func Empty[T any]() Stream[T] {
	return &sliceStream[T]{done: true}
}

type sliceStream[T any] struct {
	items []T
	pos   int
	done  bool
}

func (s *sliceStream[T]) Next(context.Context) Event[T] {
	if s.done || s.pos >= len(s.items) {
		s.done = true
		return End[T]()
	}
	v := s.items[s.pos]
	s.pos++
	return Data(v)
}

func (s *sliceStream[T]) Close() error {
	s.done = true
	return nil
}

// Fail returns a stream whose first pull reports err and which is exhausted
// afterwards. The flattener uses it to route mapper failures through the
// regular inner-error path.
func Fail[T any](err error) Stream[T] {
	return &failStream[T]{err: err}
}

type failStream[T any] struct {
	err      error
	reported bool
}

func (s *failStream[T]) Next(context.Context) Event[T] {
	if s.reported {
		return End[T]()
	}
	s.reported = true
	return Err[T](s.err)
}

func (s *failStream[T]) Close() error {
	s.reported = true
	return nil
}

// FromSeq adapts a Go iterator to a Stream. The iterator does not start
// running until the first pull.
func FromSeq[T any](seq iter.Seq[T]) Stream[T] {
	next, stop := iter.Pull(seq)
	return &seqStream[T]{next: next, stop: stop}
}

type seqStream[T any] struct {
	next func() (T, bool)
	stop func()
	done bool
}

func (s *seqStream[T]) Next(context.Context) Event[T] {
	if s.done {
		return End[T]()
	}
	v, ok := s.next()
	if !ok {
		s.done = true
		s.stop()
		return End[T]()
	}
	return Data(v)
}

func (s *seqStream[T]) Close() error {
	if !s.done {
		s.done = true
		s.stop()
	}
	return nil
}

// FromSeq2 adapts an error-carrying iterator: a pair with a non-nil error
// becomes a KindError event and iteration continues with the next pair, the
// same contract the Try-style iterator helpers use.
func FromSeq2[T any](seq iter.Seq2[T, error]) Stream[T] {
	next, stop := iter.Pull2(seq)
	return &seq2Stream[T]{next: next, stop: stop}
}

type seq2Stream[T any] struct {
	next func() (T, error, bool)
	stop func()
	done bool
}

func (s *seq2Stream[T]) Next(context.Context) Event[T] {
	if s.done {
		return End[T]()
	}
	v, err, ok := s.next()
	if !ok {
		s.done = true
		s.stop()
		return End[T]()
	}
	if err != nil {
		return Err[T](err)
	}
	return Data(v)
}

func (s *seq2Stream[T]) Close() error {
	if !s.done {
		s.done = true
		s.stop()
	}
	return nil
}

// Collect drains s into a slice. It stops at the first KindError event and
// returns the values collected so far alongside that error. The stream is
// not closed; that stays with the caller.
func Collect[T any](ctx context.Context, s Stream[T]) ([]T, error) {
	var out []T
	for {
		ev := s.Next(ctx)
		switch ev.Kind {
		case KindData:
			out = append(out, ev.Value)
		case KindError:
			return out, ev.Err
		default:
			return out, nil
		}
	}
}
