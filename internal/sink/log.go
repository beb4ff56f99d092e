package sink

import "log/slog"

// LogSink emits every appended chunk as a log record. Useful when a run's
// output only needs to be seen, not kept.
type LogSink struct {
	log *slog.Logger
	n   int
}

// NewLogSink wraps log; nil falls back to slog.Default.
func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Append(p []byte) error {
	s.n++
	s.log.Info("Run output", "chunk", string(p), "n", s.n)
	return nil
}

func (s *LogSink) Flush() error {
	s.log.Debug("Run output flushed", "chunks", s.n)
	return nil
}

func (s *LogSink) Close() error {
	s.log.Debug("Run output closed", "chunks", s.n)
	return nil
}
