package stream

// EventKind discriminates the three event variants a stream can emit.
type EventKind int8

const (
	// KindData marks an event carrying one element of the stream.
	KindData EventKind = iota + 1
	// KindError marks a failure reported by the stream's producer.
	KindError
	// KindEnd marks normal exhaustion; no further data will follow.
	KindEnd
)

func (k EventKind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindError:
		return "error"
	case KindEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is one unit flowing through a Stream: an element, a failure, or the
// end marker. Value is meaningful only for KindData, Err only for KindError.
type Event[T any] struct {
	Kind  EventKind
	Value T
	Err   error
}

// Data wraps a value in a KindData event.
func Data[T any](v T) Event[T] {
	return Event[T]{Kind: KindData, Value: v}
}

// Err wraps a failure in a KindError event.
func Err[T any](err error) Event[T] {
	return Event[T]{Kind: KindError, Err: err}
}

// End returns the exhaustion marker.
func End[T any]() Event[T] {
	return Event[T]{Kind: KindEnd}
}
