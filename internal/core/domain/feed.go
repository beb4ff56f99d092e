package domain

import "time"

// MapperKind selects how an outer item becomes an inner stream.
type MapperKind string

const (
	MapperChunks MapperKind = "chunks"
	MapperLines  MapperKind = "lines"
)

// PolicyKind selects the recovery behavior for a feed.
type PolicyKind string

const (
	PolicyAbort   PolicyKind = "abort"
	PolicyAbandon PolicyKind = "abandon"
	PolicyResume  PolicyKind = "resume"
	PolicySkip    PolicyKind = "skip"
)

// SinkKind selects where a feed's output goes.
type SinkKind string

const (
	SinkStdout   SinkKind = "stdout"
	SinkFile     SinkKind = "file"
	SinkLog      SinkKind = "log"
	SinkMemory   SinkKind = "memory"
	SinkPostgres SinkKind = "postgres"
	SinkRedis    SinkKind = "redis"
)

// FeedJob is one resolved unit of flattening work: a named list of inputs,
// the mapper that opens them, the policy that rules their faults, and the
// sink the output drains into.
type FeedJob struct {
	Name       string
	Inputs     []string
	Mapper     MapperKind
	ChunkSize  int
	Policy     PolicyKind
	Substitute string
	Sink       SinkKind
	SinkTarget string
	Timeout    time.Duration
	Retry      bool
	Retention  time.Duration
}
