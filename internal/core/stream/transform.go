package stream

import "context"

// Map transforms each data element of src with fn. Error and end events pass
// through untouched.
func Map[T, R any](src Stream[T], fn func(T) R) Stream[R] {
	return &mapStream[T, R]{src: src, fn: fn}
}

type mapStream[T, R any] struct {
	src Stream[T]
	fn  func(T) R
}

func (m *mapStream[T, R]) Next(ctx context.Context) Event[R] {
	ev := m.src.Next(ctx)
	switch ev.Kind {
	case KindData:
		return Data(m.fn(ev.Value))
	case KindError:
		return Err[R](ev.Err)
	default:
		return End[R]()
	}
}

func (m *mapStream[T, R]) Close() error { return m.src.Close() }

// Filter drops data elements that fail the predicate.
func Filter[T any](src Stream[T], keep func(T) bool) Stream[T] {
	return &filterStream[T]{src: src, keep: keep}
}

type filterStream[T any] struct {
	src  Stream[T]
	keep func(T) bool
}

func (f *filterStream[T]) Next(ctx context.Context) Event[T] {
	for {
		ev := f.src.Next(ctx)
		if ev.Kind == KindData && !f.keep(ev.Value) {
			continue
		}
		return ev
	}
}

func (f *filterStream[T]) Close() error { return f.src.Close() }

// Take passes through at most n data elements, then ends and closes the
// source. Error events do not count against n.
func Take[T any](src Stream[T], n int) Stream[T] {
	return &takeStream[T]{src: src, left: n}
}

type takeStream[T any] struct {
	src  Stream[T]
	left int
	done bool
}

func (t *takeStream[T]) Next(ctx context.Context) Event[T] {
	if t.done {
		return End[T]()
	}
	if t.left <= 0 {
		t.done = true
		_ = t.src.Close()
		return End[T]()
	}
	ev := t.src.Next(ctx)
	switch ev.Kind {
	case KindData:
		t.left--
		return ev
	case KindError:
		return ev
	default:
		t.done = true
		_ = t.src.Close()
		return ev
	}
}

func (t *takeStream[T]) Close() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.src.Close()
}
