package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/minhpq/funnel/internal/core/stream"
)

// Numbers reads r as one int64 per line. Blank lines are skipped; a line
// that does not parse becomes an Error event carrying the line number, and
// the stream continues with the next line. The caller keeps ownership of r
// unless it is an io.Closer, in which case Close releases it.
func Numbers(r io.Reader) stream.Stream[int64] {
	return &numberStream{r: r, sc: bufio.NewScanner(r)}
}

type numberStream struct {
	r      io.Reader
	sc     *bufio.Scanner
	line   int
	done   bool
	closed bool
}

func (s *numberStream) Next(ctx context.Context) stream.Event[int64] {
	if s.done || s.closed {
		return stream.End[int64]()
	}
	if err := ctx.Err(); err != nil {
		return stream.Err[int64](err)
	}

	for s.sc.Scan() {
		s.line++
		text := strings.TrimSpace(s.sc.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return stream.Err[int64](fmt.Errorf("line %d: parse %q: %w", s.line, text, err))
		}
		return stream.Data(v)
	}

	s.done = true
	if err := s.sc.Err(); err != nil {
		return stream.Err[int64](fmt.Errorf("read numbers: %w", err))
	}
	return stream.End[int64]()
}

func (s *numberStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
