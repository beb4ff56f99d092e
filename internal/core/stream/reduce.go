package stream

import (
	"context"
	"errors"
)

// ErrEmptyStream is returned by Reduce when the source ends without ever
// producing a data event.
var ErrEmptyStream = errors.New("reduce of empty stream")

// Reduce folds s left to right with combine, seeding the accumulator with
// the first element. There is no separate seed: an empty stream is an error,
// and combine is never called for it. A failure from the source aborts the
// fold with that cause and no partial result.
func Reduce[T any](ctx context.Context, s Stream[T], combine func(T, T) T) (T, error) {
	var acc T
	seeded := false
	for {
		ev := s.Next(ctx)
		switch ev.Kind {
		case KindData:
			if !seeded {
				acc = ev.Value
				seeded = true
				continue
			}
			acc = combine(acc, ev.Value)
		case KindError:
			var zero T
			return zero, ev.Err
		default:
			if !seeded {
				return acc, ErrEmptyStream
			}
			return acc, nil
		}
	}
}
