package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/minhpq/funnel/internal/core/stream"
	"github.com/minhpq/funnel/internal/flatten"
)

// DefaultChunkSize is used when FileChunks is given a non-positive size.
const DefaultChunkSize = 32 * 1024

// FileChunks returns a mapper that opens each path as a stream of byte
// chunks of at most chunkSize. An open failure is returned as the mapper
// error, so the run's policy decides what it costs.
func FileChunks(chunkSize int) flatten.Mapper[string, []byte] {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return func(ctx context.Context, path string) (stream.Stream[[]byte], error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return &chunkStream{f: f, size: chunkSize}, nil
	}
}

type chunkStream struct {
	f      *os.File
	size   int
	done   bool
	closed bool
}

func (s *chunkStream) Next(ctx context.Context) stream.Event[[]byte] {
	if s.done || s.closed {
		return stream.End[[]byte]()
	}
	if err := ctx.Err(); err != nil {
		return stream.Err[[]byte](err)
	}

	buf := make([]byte, s.size)
	n, err := s.f.Read(buf)
	if n > 0 {
		return stream.Data(buf[:n])
	}
	if err == nil || err == io.EOF {
		s.done = true
		return stream.End[[]byte]()
	}
	return stream.Err[[]byte](fmt.Errorf("read %s: %w", s.f.Name(), err))
}

func (s *chunkStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.f.Close()
}

// FileLines returns a mapper that opens each path as a stream of text
// lines, newline stripped.
func FileLines() flatten.Mapper[string, string] {
	return func(ctx context.Context, path string) (stream.Stream[string], error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return &lineStream{f: f, sc: bufio.NewScanner(f)}, nil
	}
}

type lineStream struct {
	f      *os.File
	sc     *bufio.Scanner
	done   bool
	closed bool
}

func (s *lineStream) Next(ctx context.Context) stream.Event[string] {
	if s.done || s.closed {
		return stream.End[string]()
	}
	if err := ctx.Err(); err != nil {
		return stream.Err[string](err)
	}

	if s.sc.Scan() {
		return stream.Data(s.sc.Text())
	}
	s.done = true
	if err := s.sc.Err(); err != nil {
		return stream.Err[string](fmt.Errorf("read %s: %w", s.f.Name(), err))
	}
	return stream.End[string]()
}

func (s *lineStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.f.Close()
}
