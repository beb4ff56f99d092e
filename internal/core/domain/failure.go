package domain

// FailureLevel tells which stage of a run a recorded fault came from.
type FailureLevel string

const (
	FailureLevelOuter FailureLevel = "outer"
	FailureLevelInner FailureLevel = "inner"
	FailureLevelSink  FailureLevel = "sink"
)
