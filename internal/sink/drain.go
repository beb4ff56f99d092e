package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/minhpq/funnel/internal/core/stream"
)

// Drain appends every data value of src to dst until the stream ends, then
// settles the sink: Flush, then Close, each exactly once, never before the
// last Append. The discipline holds for every way a run can end, clean
// exhaustion, a terminal fault or context cancellation.
//
// Fault events are treated as terminal here; recovery belongs upstream. An
// Append failure stops the run without flushing, but the sink and the
// stream are still closed. All failure causes come back joined, the
// stream's own fault first.
//
// Drain owns src and closes it before returning. A nil encode falls back
// to fmt.Append.
func Drain[T any](ctx context.Context, src stream.Stream[T], encode func(T) []byte, dst Sink) error {
	if encode == nil {
		encode = func(v T) []byte { return fmt.Append(nil, v) }
	}

	var errs []error
	var cause error
	appendFailed := false

loop:
	for {
		if err := ctx.Err(); err != nil {
			cause = err
			break
		}
		ev := src.Next(ctx)
		switch ev.Kind {
		case stream.KindEnd:
			break loop
		case stream.KindError:
			cause = ev.Err
			break loop
		default:
			if err := dst.Append(encode(ev.Value)); err != nil {
				errs = append(errs, &OpError{Op: "append", Err: err})
				appendFailed = true
				break loop
			}
		}
	}

	if !appendFailed {
		if err := dst.Flush(); err != nil {
			errs = append(errs, &OpError{Op: "flush", Err: err})
		}
	}
	if err := dst.Close(); err != nil {
		errs = append(errs, &OpError{Op: "close", Err: err})
	}
	if err := src.Close(); err != nil {
		errs = append(errs, err)
	}

	if cause != nil {
		errs = append([]error{cause}, errs...)
	}
	return errors.Join(errs...)
}
