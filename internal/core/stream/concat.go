package stream

import "context"

// Concat returns a stream that yields every event of each input stream in
// turn, exhausting one before the first pull of the next. Error events pass
// through without advancing: whether to keep pulling the current stream
// after a failure stays the consumer's call. Streams are closed as the
// concatenation moves past them.
func Concat[T any](streams ...Stream[T]) Stream[T] {
	return &concatStream[T]{streams: streams}
}

type concatStream[T any] struct {
	streams []Stream[T]
	pos     int
	done    bool
}

func (c *concatStream[T]) Next(ctx context.Context) Event[T] {
	for {
		if c.done || c.pos >= len(c.streams) {
			c.done = true
			return End[T]()
		}
		ev := c.streams[c.pos].Next(ctx)
		if ev.Kind != KindEnd {
			return ev
		}
		_ = c.streams[c.pos].Close()
		c.pos++
	}
}

func (c *concatStream[T]) Close() error {
	if c.done {
		return nil
	}
	c.done = true

	var firstErr error
	for ; c.pos < len(c.streams); c.pos++ {
		if err := c.streams[c.pos].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
