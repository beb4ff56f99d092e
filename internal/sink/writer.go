package sink

import (
	"bufio"
	"io"
	"os"
)

// WriterSink buffers appends onto any io.Writer. It does not own the
// writer: Close flushes what is still buffered and leaves the writer open.
type WriterSink struct {
	buf    *bufio.Writer
	closed bool
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{buf: bufio.NewWriter(w)}
}

func (s *WriterSink) Append(p []byte) error {
	_, err := s.buf.Write(p)
	return err
}

func (s *WriterSink) Flush() error {
	return s.buf.Flush()
}

func (s *WriterSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.buf.Flush()
}

// FileSink writes appends to a file through a buffer. Flush pushes the
// buffer down and syncs the file; Close flushes what remains and closes
// the file handle. Close is idempotent.
type FileSink struct {
	f      *os.File
	buf    *bufio.Writer
	closed bool
}

// NewFileSink creates or truncates the file at path.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileSink{f: f, buf: bufio.NewWriter(f)}, nil
}

func (s *FileSink) Append(p []byte) error {
	_, err := s.buf.Write(p)
	return err
}

func (s *FileSink) Flush() error {
	if err := s.buf.Flush(); err != nil {
		return err
	}
	return s.f.Sync()
}

func (s *FileSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	flushErr := s.buf.Flush()
	if err := s.f.Close(); err != nil {
		return err
	}
	return flushErr
}

// Name returns the path of the underlying file.
func (s *FileSink) Name() string {
	return s.f.Name()
}
