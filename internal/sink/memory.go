package sink

import "sync"

// MemorySink collects appended chunks in memory and records every operation
// in arrival order. Failure injection through the Fail* fields makes it the
// standard double for exercising delivery discipline.
type MemorySink struct {
	FailAppend error
	FailFlush  error
	FailClose  error

	mu     sync.Mutex
	chunks [][]byte
	ops    []string
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "append")
	if s.FailAppend != nil {
		return s.FailAppend
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	s.chunks = append(s.chunks, buf)
	return nil
}

func (s *MemorySink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "flush")
	return s.FailFlush
}

func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "close")
	return s.FailClose
}

// Chunks returns a copy of every successfully appended chunk.
func (s *MemorySink) Chunks() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.chunks))
	for i, c := range s.chunks {
		out[i] = append([]byte(nil), c...)
	}
	return out
}

// Ops returns the operation log: one entry per Append, Flush and Close
// call, in the order they happened.
func (s *MemorySink) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ops...)
}

// Strings renders the appended chunks as strings.
func (s *MemorySink) Strings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.chunks))
	for i, c := range s.chunks {
		out[i] = string(c)
	}
	return out
}
