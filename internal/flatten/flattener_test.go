package flatten

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhpq/funnel/internal/core/stream"
	"github.com/minhpq/funnel/internal/policy"
)

// =============================================================================
// Test Streams
// =============================================================================

// scripted replays a fixed series of events, then keeps answering End.
type scripted[T any] struct {
	events []stream.Event[T]
	pos    int
	closed bool
}

func newScripted[T any](events ...stream.Event[T]) *scripted[T] {
	return &scripted[T]{events: events}
}

func (s *scripted[T]) Next(context.Context) stream.Event[T] {
	if s.closed || s.pos >= len(s.events) {
		return stream.End[T]()
	}
	ev := s.events[s.pos]
	s.pos++
	return ev
}

func (s *scripted[T]) Close() error {
	s.closed = true
	return nil
}

// blocking parks every pull until the context gives up.
type blocking struct{}

func (blocking) Next(ctx context.Context) stream.Event[int] {
	<-ctx.Done()
	return stream.Err[int](ctx.Err())
}

func (blocking) Close() error { return nil }

// activationGauge counts how many wrapped streams are open at once.
type activationGauge struct {
	active int
	max    int
	opened int
}

func (g *activationGauge) wrap(src stream.Stream[int]) stream.Stream[int] {
	g.active++
	g.opened++
	if g.active > g.max {
		g.max = g.active
	}
	return &gaugedStream{src: src, gauge: g}
}

type gaugedStream struct {
	src    stream.Stream[int]
	gauge  *activationGauge
	closed bool
}

func (s *gaugedStream) Next(ctx context.Context) stream.Event[int] { return s.src.Next(ctx) }

func (s *gaugedStream) Close() error {
	if !s.closed {
		s.closed = true
		s.gauge.active--
	}
	return s.src.Close()
}

// recObserver collects the run trail for assertions.
type recObserver struct {
	transitions   []Transition
	consultations []Consultation
}

func (r *recObserver) OnTransition(t Transition)     { r.transitions = append(r.transitions, t) }
func (r *recObserver) OnConsultation(c Consultation) { r.consultations = append(r.consultations, c) }

// pullAll drains s until End, splitting data values from fault events.
func pullAll[T any](t *testing.T, s stream.Stream[T]) (data []T, faults []error) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		ev := s.Next(ctx)
		switch ev.Kind {
		case stream.KindEnd:
			return data, faults
		case stream.KindError:
			faults = append(faults, ev.Err)
		default:
			data = append(data, ev.Value)
		}
	}
	t.Fatal("stream did not end within 1000 pulls")
	return nil, nil
}

// =============================================================================
// Ordering
// =============================================================================

func TestFlattener_OrderingAcrossInners(t *testing.T) {
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		if item == "a" {
			return stream.Of(1, 2), nil
		}
		return stream.Of(3, 4), nil
	}

	f := New[string, int](stream.Of("a", "b"), mapper, policy.Abort[int]())

	data, faults := pullAll(t, f)
	require.Empty(t, faults)
	assert.Equal(t, []int{1, 2, 3, 4}, data)
	assert.Equal(t, StateCompleted, f.State())
}

func TestFlattener_SingleFlight(t *testing.T) {
	gauge := &activationGauge{}
	mapper := func(ctx context.Context, item int) (stream.Stream[int], error) {
		return gauge.wrap(stream.Of(item*10+1, item*10+2)), nil
	}

	f := New[int, int](stream.Of(1, 2, 3), mapper, policy.Abort[int]())

	data, faults := pullAll(t, f)
	require.Empty(t, faults)
	assert.Equal(t, []int{11, 12, 21, 22, 31, 32}, data)

	assert.Equal(t, 3, gauge.opened, "every outer item should open one inner")
	assert.Equal(t, 1, gauge.max, "inner activations must never overlap")
	assert.Equal(t, 0, gauge.active, "every inner must be released")
}

func TestFlattener_EmptyOuter(t *testing.T) {
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		t.Fatal("mapper must not run for an empty outer")
		return nil, nil
	}

	f := New[string, int](stream.Empty[string](), mapper, policy.Abort[int]())

	data, faults := pullAll(t, f)
	assert.Empty(t, data)
	assert.Empty(t, faults)
	assert.Equal(t, StateCompleted, f.State())
}

// =============================================================================
// Recovery
// =============================================================================

// faultyInner yields 1, 2, a fault, then 4, 5.
func faultyInner(cause error) *scripted[int] {
	return newScripted(
		stream.Data(1),
		stream.Data(2),
		stream.Err[int](cause),
		stream.Data(4),
		stream.Data(5),
	)
}

func TestFlattener_AbandonDropsRestOfInner(t *testing.T) {
	cause := errors.New("bad element")
	inner := faultyInner(cause)
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		if item == "a" {
			return inner, nil
		}
		return stream.Of(7), nil
	}

	rec := &recObserver{}
	f := New[string, int](stream.Of("a", "b"), mapper, policy.AbandonWith(-1), WithObserver(rec))

	data, faults := pullAll(t, f)
	require.Empty(t, faults)
	assert.Equal(t, []int{1, 2, -1, 7}, data, "substitute then next outer item; 4 and 5 dropped")
	assert.Equal(t, StateCompleted, f.State())
	assert.True(t, inner.closed, "abandoned inner must be released")

	require.Len(t, rec.consultations, 1)
	c := rec.consultations[0]
	assert.Equal(t, LevelInner, c.Level)
	assert.Equal(t, policy.KindAbandon, c.Decision)
	assert.False(t, c.Coerced)
	assert.ErrorIs(t, c.Err, cause)
}

func TestFlattener_ResumeKeepsSameInner(t *testing.T) {
	cause := errors.New("bad element")
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		return faultyInner(cause), nil
	}

	f := New[string, int](stream.Of("a"), mapper, policy.ResumeWith(-1))

	data, faults := pullAll(t, f)
	require.Empty(t, faults)
	assert.Equal(t, []int{1, 2, -1, 4, 5}, data, "4 and 5 still delivered from the same inner")
	assert.Equal(t, StateCompleted, f.State())
}

func TestFlattener_SkipEmitsNothing(t *testing.T) {
	cause := errors.New("bad element")
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		if item == "a" {
			return newScripted(stream.Data(1), stream.Data(2), stream.Err[int](cause), stream.Data(4)), nil
		}
		return stream.Of(7), nil
	}

	rec := &recObserver{}
	f := New[string, int](stream.Of("a", "b"), mapper, policy.Skip[int](), WithObserver(rec))

	data, faults := pullAll(t, f)
	require.Empty(t, faults)
	assert.Equal(t, []int{1, 2, 7}, data, "no substitute, rest of faulted inner dropped")

	// Skipped faults still reach the observer.
	require.Len(t, rec.consultations, 1)
	assert.Equal(t, policy.KindSkip, rec.consultations[0].Decision)
	assert.ErrorIs(t, rec.consultations[0].Err, cause)
}

func TestFlattener_AbortOnInnerFault(t *testing.T) {
	cause := errors.New("bad element")
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		return faultyInner(cause), nil
	}

	f := New[string, int](stream.Of("a", "b"), mapper, policy.Abort[int]())

	data, faults := pullAll(t, f)
	assert.Equal(t, []int{1, 2}, data, "prefix before the fault stays delivered")
	require.Len(t, faults, 1)
	assert.ErrorIs(t, faults[0], cause)
	assert.Equal(t, StateFailed, f.State())
	assert.ErrorIs(t, f.Err(), cause)
}

func TestFlattener_OuterFaultAlwaysFatal(t *testing.T) {
	cause := errors.New("outer broke")
	var mapped []string
	outer := newScripted(
		stream.Data("a"),
		stream.Err[string](cause),
		stream.Data("never"),
	)
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		mapped = append(mapped, item)
		return stream.Of(1, 2), nil
	}

	// A substituting policy must not rescue an outer fault.
	rec := &recObserver{}
	f := New[string, int](outer, mapper, policy.AbandonWith(-1), WithObserver(rec))

	data, faults := pullAll(t, f)
	assert.Equal(t, []int{1, 2}, data, "already forwarded data stays delivered")
	require.Len(t, faults, 1)
	assert.ErrorIs(t, faults[0], cause)
	assert.Equal(t, StateFailed, f.State())
	assert.Equal(t, []string{"a"}, mapped, "no outer item processed past the fault")

	require.Len(t, rec.consultations, 1)
	c := rec.consultations[0]
	assert.Equal(t, LevelOuter, c.Level)
	assert.Equal(t, policy.KindAbort, c.Decision)
	assert.True(t, c.Coerced, "abandon on an outer fault must coerce to abort")
}

func TestFlattener_TerminalErrorExactlyOnce(t *testing.T) {
	cause := errors.New("bad element")
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		return stream.Fail[int](cause), nil
	}

	f := New[string, int](stream.Of("a"), mapper, policy.Abort[int]())
	ctx := context.Background()

	ev := f.Next(ctx)
	require.Equal(t, stream.KindError, ev.Kind)

	for i := 0; i < 3; i++ {
		ev := f.Next(ctx)
		assert.Equal(t, stream.KindEnd, ev.Kind, "pull %d after terminal fault", i)
	}
}

// =============================================================================
// Mapper failures
// =============================================================================

func TestFlattener_MapperFailureIsAnInnerFault(t *testing.T) {
	cause := errors.New("no such feed")
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		if item == "bad" {
			return nil, cause
		}
		return stream.Of(7), nil
	}

	f := New[string, int](stream.Of("bad", "b"), mapper, policy.AbandonWith(-1))

	data, faults := pullAll(t, f)
	require.Empty(t, faults)
	assert.Equal(t, []int{-1, 7}, data, "open failure substituted, run continues")
	assert.Equal(t, StateCompleted, f.State())
}

func TestFlattener_MapperFailureAborts(t *testing.T) {
	cause := errors.New("no such feed")
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		return nil, cause
	}

	f := New[string, int](stream.Of("bad"), mapper, policy.Abort[int]())

	data, faults := pullAll(t, f)
	assert.Empty(t, data)
	require.Len(t, faults, 1)
	assert.ErrorIs(t, faults[0], cause)
	assert.Equal(t, StateFailed, f.State())
}

func TestFlattener_ResumeOverFailedOpenDegenerates(t *testing.T) {
	cause := errors.New("no such feed")
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		if item == "bad" {
			return nil, cause
		}
		return stream.Of(7), nil
	}

	// Resume keeps pulling the substituted Fail inner, which has nothing
	// left after its one fault, so the run just moves on.
	f := New[string, int](stream.Of("bad", "b"), mapper, policy.ResumeWith(-1))

	data, faults := pullAll(t, f)
	require.Empty(t, faults)
	assert.Equal(t, []int{-1, 7}, data)
	assert.Equal(t, StateCompleted, f.State())
}

func TestFlattener_NilMapperStreamIsEmpty(t *testing.T) {
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		if item == "hole" {
			return nil, nil
		}
		return stream.Of(7), nil
	}

	f := New[string, int](stream.Of("hole", "b"), mapper, policy.Abort[int]())

	data, faults := pullAll(t, f)
	require.Empty(t, faults)
	assert.Equal(t, []int{7}, data)
}

// =============================================================================
// Cancellation
// =============================================================================

func TestFlattener_ContextCancelMidRun(t *testing.T) {
	inner := newScripted(stream.Data(1), stream.Data(2), stream.Data(3))
	outer := newScripted(stream.Data("a"), stream.Data("b"))
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		return inner, nil
	}

	f := New[string, int](outer, mapper, policy.Abort[int]())
	ctx, cancel := context.WithCancel(context.Background())

	ev := f.Next(ctx)
	require.Equal(t, stream.KindData, ev.Kind)
	require.Equal(t, 1, ev.Value)

	cancel()

	ev = f.Next(ctx)
	require.Equal(t, stream.KindError, ev.Kind, "the pull observing cancellation reports it")
	assert.ErrorIs(t, ev.Err, context.Canceled)
	assert.Equal(t, StateCancelled, f.State())
	assert.True(t, inner.closed, "active inner must be released")
	assert.True(t, outer.closed, "outer must be released")

	for i := 0; i < 3; i++ {
		assert.Equal(t, stream.KindEnd, f.Next(ctx).Kind)
	}
}

func TestFlattener_CloseMidRunEmitsNothing(t *testing.T) {
	inner := newScripted(stream.Data(1), stream.Data(2))
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		return inner, nil
	}

	f := New[string, int](stream.Of("a"), mapper, policy.Abort[int]())
	ctx := context.Background()

	ev := f.Next(ctx)
	require.Equal(t, stream.KindData, ev.Kind)

	require.NoError(t, f.Close())
	assert.Equal(t, StateCancelled, f.State())
	assert.True(t, inner.closed)

	// The caller asked for the stop; no fault event follows.
	assert.Equal(t, stream.KindEnd, f.Next(ctx).Kind)
	require.NoError(t, f.Close(), "Close is idempotent")
}

func TestFlattener_CloseBeforeFirstPull(t *testing.T) {
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		return stream.Of(1), nil
	}
	f := New[string, int](stream.Of("a"), mapper, policy.Abort[int]())

	require.NoError(t, f.Close())
	assert.Equal(t, StateCancelled, f.State())
	assert.Equal(t, stream.KindEnd, f.Next(context.Background()).Kind)
}

// =============================================================================
// Timeouts
// =============================================================================

func TestFlattener_TimeoutCoercesResumeToAbandon(t *testing.T) {
	inner := newScripted(stream.Data(1), stream.Data(2), stream.Data(3))
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		return inner, nil
	}

	rec := &recObserver{}
	f := New[string, int](stream.Of("a"), mapper, policy.ResumeWith(-1),
		WithTimeout(time.Millisecond), WithObserver(rec))
	ctx := context.Background()

	ev := f.Next(ctx)
	require.Equal(t, 1, ev.Value)

	// Let the per-inner deadline lapse between pulls.
	time.Sleep(10 * time.Millisecond)

	ev = f.Next(ctx)
	require.Equal(t, stream.KindData, ev.Kind)
	assert.Equal(t, -1, ev.Value, "substitute still emitted")
	assert.True(t, inner.closed, "timed-out inner must be released")

	data, faults := pullAll(t, f)
	require.Empty(t, faults)
	assert.Empty(t, data, "nothing left after the lone outer item")
	assert.Equal(t, StateCompleted, f.State())

	require.Len(t, rec.consultations, 1)
	c := rec.consultations[0]
	assert.Equal(t, policy.KindAbandon, c.Decision)
	assert.True(t, c.Coerced, "resume on a timed-out inner coerces to abandon")
	assert.ErrorIs(t, c.Err, ErrTimeout)
}

func TestFlattener_TimeoutAborts(t *testing.T) {
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		return newScripted(stream.Data(1), stream.Data(2)), nil
	}

	f := New[string, int](stream.Of("a"), mapper, policy.Abort[int](), WithTimeout(time.Millisecond))
	ctx := context.Background()

	require.Equal(t, 1, f.Next(ctx).Value)
	time.Sleep(10 * time.Millisecond)

	ev := f.Next(ctx)
	require.Equal(t, stream.KindError, ev.Kind)
	assert.ErrorIs(t, ev.Err, ErrTimeout)
	assert.Equal(t, StateFailed, f.State())
}

func TestFlattener_TimeoutInterruptsBlockedInner(t *testing.T) {
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		return blocking{}, nil
	}

	f := New[string, int](stream.Of("a"), mapper, policy.Abort[int](), WithTimeout(30*time.Millisecond))

	start := time.Now()
	ev := f.Next(context.Background())
	elapsed := time.Since(start)

	require.Equal(t, stream.KindError, ev.Kind)
	assert.ErrorIs(t, ev.Err, ErrTimeout)
	assert.ErrorIs(t, ev.Err, context.DeadlineExceeded)
	assert.Less(t, elapsed, 5*time.Second, "deadline must interrupt the blocked pull")
	assert.Equal(t, StateFailed, f.State())
}

// =============================================================================
// Concat parity
// =============================================================================

// Flattening a pre-built stream of streams must behave like Concat.
func TestFlattener_MatchesConcat(t *testing.T) {
	build := func() []stream.Stream[int] {
		return []stream.Stream[int]{stream.Of(1, 2), stream.Of(3), stream.Of(4, 5)}
	}

	ctx := context.Background()
	viaConcat, err := stream.Collect(ctx, stream.Concat(build()...))
	require.NoError(t, err)

	inners := build()
	mapper := func(ctx context.Context, i int) (stream.Stream[int], error) {
		return inners[i], nil
	}
	f := New[int, int](stream.Of(0, 1, 2), mapper, policy.Abort[int]())
	viaFlatten, faults := pullAll(t, f)

	require.Empty(t, faults)
	assert.Equal(t, viaConcat, viaFlatten)
}

// =============================================================================
// Observers
// =============================================================================

func TestFlattener_ObserverSeesLifecycle(t *testing.T) {
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		return stream.Of(1), nil
	}

	rec := &recObserver{}
	f := New[string, int](stream.Of("a"), mapper, policy.Abort[int](), WithObserver(rec))

	_, faults := pullAll(t, f)
	require.Empty(t, faults)

	require.NotEmpty(t, rec.transitions)
	first := rec.transitions[0]
	assert.Equal(t, StateIdle, first.From)
	assert.Equal(t, StateAwaitingOuter, first.To)
	last := rec.transitions[len(rec.transitions)-1]
	assert.Equal(t, StateCompleted, last.To)

	for i, tr := range rec.transitions {
		assert.True(t, tr.IsValid(), "transition %d (%s -> %s) must be in the table", i, tr.From, tr.To)
		assert.False(t, tr.Timestamp.IsZero())
	}
}

func TestFlattener_NilPolicyDefaultsToAbort(t *testing.T) {
	cause := errors.New("bad element")
	mapper := func(ctx context.Context, item string) (stream.Stream[int], error) {
		return stream.Fail[int](cause), nil
	}

	f := New[string, int](stream.Of("a"), mapper, nil)

	_, faults := pullAll(t, f)
	require.Len(t, faults, 1)
	assert.ErrorIs(t, faults[0], cause)
}

func TestFlattener_ManyOuterItems(t *testing.T) {
	var items []int
	for i := 0; i < 50; i++ {
		items = append(items, i)
	}
	mapper := func(ctx context.Context, i int) (stream.Stream[int], error) {
		return stream.Of(i * 2), nil
	}

	f := New[int, int](stream.FromSlice(items), mapper, policy.Abort[int]())

	data, faults := pullAll(t, f)
	require.Empty(t, faults)
	require.Len(t, data, 50)
	for i, v := range data {
		assert.Equal(t, i*2, v, fmt.Sprintf("item %d", i))
	}
}
