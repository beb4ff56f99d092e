package policy

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	assert.Equal(t, "abort", KindAbort.String())
	assert.Equal(t, "resume", KindResume.String())
	assert.Equal(t, "abandon", KindAbandon.String())
	assert.Equal(t, "skip", KindSkip.String())
	assert.Equal(t, "unknown", Kind(0).String())
}

func TestAbort_BothLevels(t *testing.T) {
	p := Abort[int]()
	err := errors.New("anything")

	assert.Equal(t, KindAbort, p.OnOuterError(err).Kind)
	assert.Equal(t, KindAbort, p.OnInnerError(err).Kind)
}

func TestAbandonWith_InnerSubstitutes(t *testing.T) {
	p := AbandonWith(-1)
	err := errors.New("inner broke")

	d := p.OnInnerError(err)
	require.Equal(t, KindAbandon, d.Kind)
	assert.Equal(t, -1, d.Substitute)

	// Outer faults stay fatal.
	assert.Equal(t, KindAbort, p.OnOuterError(err).Kind)
}

func TestResumeWith_InnerSubstitutes(t *testing.T) {
	p := ResumeWith(-1)
	err := errors.New("inner broke")

	d := p.OnInnerError(err)
	require.Equal(t, KindResume, d.Kind)
	assert.Equal(t, -1, d.Substitute)

	assert.Equal(t, KindAbort, p.OnOuterError(err).Kind)
}

func TestSkip_InnerDropsOuterAborts(t *testing.T) {
	p := Skip[string]()
	err := errors.New("inner broke")

	assert.Equal(t, KindSkip, p.OnInnerError(err).Kind)
	assert.Equal(t, KindAbort, p.OnOuterError(err).Kind)
}

func TestFunc_RoutesByError(t *testing.T) {
	p := Func(
		nil,
		func(err error) Decision[int] {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return ResumeDecision(0)
			}
			return AbortDecision[int]()
		},
	)

	d := p.OnInnerError(io.ErrUnexpectedEOF)
	require.Equal(t, KindResume, d.Kind)
	assert.Equal(t, 0, d.Substitute)

	assert.Equal(t, KindAbort, p.OnInnerError(errors.New("other")).Kind)

	// Nil outer function falls back to abort.
	assert.Equal(t, KindAbort, p.OnOuterError(errors.New("outer")).Kind)
}

func TestFunc_NilInnerAborts(t *testing.T) {
	p := Func[int](nil, nil)
	assert.Equal(t, KindAbort, p.OnInnerError(errors.New("x")).Kind)
}

func TestPolicies_AreReusableValues(t *testing.T) {
	p := ResumeWith("fallback")
	err := errors.New("e")

	// Consulting twice yields the same decision; no hidden state.
	first := p.OnInnerError(err)
	second := p.OnInnerError(err)
	assert.Equal(t, first, second)
}
