// Package policy decides what a flattening run does when a pull fails.
//
// A Policy is consulted once per fault with the error and answers with a
// Decision. Policies are pure values: they hold no run state and may be
// shared between runs. The flattener applies the decision and reports the
// consultation to its observer, so even skipped errors stay visible.
package policy

// Policy answers fault consultations at both levels of a flattening run.
// Outer faults come from the stream of items being flattened, inner faults
// from the per-item streams (a mapper failing to open one counts as an
// inner fault).
type Policy[T any] interface {
	// OnOuterError decides the reaction to a fault in the outer stream.
	// Outer faults are always fatal: the engine coerces any non-abort
	// decision to abort because there is no inner position to recover
	// at. The policy is still consulted so the answer stays observable.
	OnOuterError(err error) Decision[T]

	// OnInnerError decides the reaction to a fault in the active inner
	// stream.
	OnInnerError(err error) Decision[T]
}

// Abort fails the run on any error at either level.
func Abort[T any]() Policy[T] {
	return abortPolicy[T]{}
}

type abortPolicy[T any] struct{}

func (abortPolicy[T]) OnOuterError(error) Decision[T] { return AbortDecision[T]() }
func (abortPolicy[T]) OnInnerError(error) Decision[T] { return AbortDecision[T]() }

// AbandonWith emits sub for an inner fault and drops the rest of that inner
// stream. Outer faults still abort.
func AbandonWith[T any](sub T) Policy[T] {
	return abandonPolicy[T]{sub: sub}
}

type abandonPolicy[T any] struct{ sub T }

func (abandonPolicy[T]) OnOuterError(error) Decision[T] { return AbortDecision[T]() }
func (p abandonPolicy[T]) OnInnerError(error) Decision[T] {
	return AbandonDecision(p.sub)
}

// ResumeWith emits sub for an inner fault and keeps consuming the same inner
// stream. Outer faults still abort.
func ResumeWith[T any](sub T) Policy[T] {
	return resumePolicy[T]{sub: sub}
}

type resumePolicy[T any] struct{ sub T }

func (resumePolicy[T]) OnOuterError(error) Decision[T] { return AbortDecision[T]() }
func (p resumePolicy[T]) OnInnerError(error) Decision[T] {
	return ResumeDecision(p.sub)
}

// Skip drops an inner stream on fault without emitting anything. Outer
// faults still abort. The drop is still reported to the run's observer.
func Skip[T any]() Policy[T] {
	return skipPolicy[T]{}
}

type skipPolicy[T any] struct{}

func (skipPolicy[T]) OnOuterError(error) Decision[T] { return AbortDecision[T]() }
func (skipPolicy[T]) OnInnerError(error) Decision[T] { return SkipDecision[T]() }

// Func builds a policy from two decision functions. A nil function defaults
// to aborting at that level.
func Func[T any](onOuter, onInner func(error) Decision[T]) Policy[T] {
	return funcPolicy[T]{outer: onOuter, inner: onInner}
}

type funcPolicy[T any] struct {
	outer func(error) Decision[T]
	inner func(error) Decision[T]
}

func (p funcPolicy[T]) OnOuterError(err error) Decision[T] {
	if p.outer == nil {
		return AbortDecision[T]()
	}
	return p.outer(err)
}

func (p funcPolicy[T]) OnInnerError(err error) Decision[T] {
	if p.inner == nil {
		return AbortDecision[T]()
	}
	return p.inner(err)
}
