package policy

// Kind enumerates the reactions a policy may order after a failed pull.
type Kind int8

const (
	// KindAbort stops the whole run; the error becomes terminal.
	KindAbort Kind = iota + 1

	// KindResume emits the substitute and keeps pulling the same inner
	// stream past the fault.
	KindResume

	// KindAbandon emits the substitute, drops the faulted inner stream
	// and moves on to the next outer item.
	KindAbandon

	// KindSkip drops the faulted inner stream without emitting anything.
	KindSkip
)

func (k Kind) String() string {
	switch k {
	case KindAbort:
		return "abort"
	case KindResume:
		return "resume"
	case KindAbandon:
		return "abandon"
	case KindSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Decision is the outcome of one policy consultation. Substitute is only
// meaningful for KindResume and KindAbandon.
type Decision[T any] struct {
	Kind       Kind
	Substitute T
}

// AbortDecision orders the run to stop with the consulted error.
func AbortDecision[T any]() Decision[T] {
	return Decision[T]{Kind: KindAbort}
}

// ResumeDecision orders sub emitted in place of the fault, same stream kept.
func ResumeDecision[T any](sub T) Decision[T] {
	return Decision[T]{Kind: KindResume, Substitute: sub}
}

// AbandonDecision orders sub emitted and the faulted stream dropped.
func AbandonDecision[T any](sub T) Decision[T] {
	return Decision[T]{Kind: KindAbandon, Substitute: sub}
}

// SkipDecision orders the faulted stream dropped with no emission.
func SkipDecision[T any]() Decision[T] {
	return Decision[T]{Kind: KindSkip}
}
