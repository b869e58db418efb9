package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSub(t *testing.T, name string, ops int) *Sub {
	t.Helper()
	s := NewSub(name)
	require.NoError(t, s.AddVar("A"))
	s.Append(NewTime(0))
	s.Append(NewRank(0xff))
	for i := 0; i < ops; i++ {
		s.Append(NewLabel(uint32(i * 16)))
		op := NewOp(10 + i)
		op.AddParam(NewValueParam(Int(int64(i)))).
			AddParam(NewValueParam(Float(1.5))).
			AddParam(NewValueParam(String("x"))).
			AddParam(NewValueParam(Bytes{1}))
		s.Append(op)
	}
	return s
}

func TestNewProgramEmpty(t *testing.T) {
	p := NewProgram()
	assert.Empty(t, p.Subs)
	assert.Empty(t, p.AnimNames)
	assert.Empty(t, p.EcliNames)
	assert.Empty(t, p.LocalData)
	assert.False(t, p.Freed())
}

func TestProgramFreeReleasesEverything(t *testing.T) {
	p := NewProgram()
	p.AnimNames = []string{"a.anm"}
	p.EcliNames = []string{"b.ecl"}
	p.LocalData = []*LocalData{{Data: []byte{1, 2}}}

	sub := buildSub(t, "Main", 3)
	require.NoError(t, p.AddSub(sub))
	ops := sub.Ops()
	require.Len(t, ops, 3)
	params := ops[0].Params

	p.Free()

	assert.True(t, p.Freed())
	assert.True(t, sub.Freed())
	for _, op := range ops {
		assert.True(t, op.Freed())
		assert.Nil(t, op.Params)
	}
	for _, prm := range params {
		assert.True(t, prm.Freed())
	}
	assert.Nil(t, p.Subs)
	assert.Nil(t, p.LocalData)

	assert.NotPanics(t, func() { p.Free() }, "second Free is a no-op")
}

func TestProgramFreePartialConstruction(t *testing.T) {
	// Simulate a parse failure after N of M subs were built.
	const total, built = 5, 2
	p := NewProgram()
	for i := 0; i < built; i++ {
		require.NoError(t, p.AddSub(buildSub(t, string(rune('A'+i)), i+1)))
	}
	// Half-populated sub: has a pending op with no params yet.
	half := NewSub("Half")
	half.Append(NewOp(1))
	p.Subs = append(p.Subs, half)
	// Slots reserved but never filled.
	for i := built + 1; i < total; i++ {
		p.Subs = append(p.Subs, nil)
	}

	assert.NotPanics(t, func() { p.Free() })
	assert.True(t, half.Freed())

	var nilProgram *Program
	assert.NotPanics(t, func() { nilProgram.Free() })
}

func TestSubFreeThenProgramFree(t *testing.T) {
	p := NewProgram()
	sub := buildSub(t, "Main", 1)
	require.NoError(t, p.AddSub(sub))

	// Freeing a child before its container must not double-free.
	sub.Ops()[0].Free()
	sub.Free()
	assert.NotPanics(t, func() { p.Free() })
}

func TestFreeEmptyContainers(t *testing.T) {
	op := NewOp(0)
	assert.NotPanics(t, func() { op.Free(); op.Free() })

	s := NewSub("Empty")
	assert.NotPanics(t, func() { s.Free(); s.Free() })
}

func TestInstrVariants(t *testing.T) {
	instrs := []Instr{NewOp(5), NewTime(30), NewRank(3), NewLabel(16)}

	var ops, times, ranks, labels int
	for _, in := range instrs {
		switch v := in.(type) {
		case *Op:
			ops++
			assert.Equal(t, 5, v.ID)
			assert.Empty(t, v.Params)
		case TimeMarker:
			times++
			assert.Equal(t, uint32(30), v.Time)
		case RankMarker:
			ranks++
			assert.Equal(t, uint32(3), v.Rank)
		case LabelMarker:
			labels++
			assert.Equal(t, uint32(16), v.Offset)
		}
	}
	assert.Equal(t, []int{1, 1, 1, 1}, []int{ops, times, ranks, labels})
	assert.NotPanics(t, func() { FreeInstr(NewTime(1)) }, "markers own nothing")
}

func TestOpReplaceParamFreesOld(t *testing.T) {
	op := NewOp(12)
	old := NewValueParam(Int(32))
	op.AddParam(old)

	op.ReplaceParam(0, NewLabelRef("target"))

	assert.True(t, old.Freed())
	assert.True(t, op.Params[0].Label)
}

func TestSubVarsUnique(t *testing.T) {
	s := NewSub("Main")
	require.NoError(t, s.AddVar("A"))
	require.NoError(t, s.AddVar("B"))
	err := s.AddVar("A")
	require.ErrorIs(t, err, ErrDuplicateVar)

	assert.Equal(t, []string{"A", "B"}, s.Vars, "insertion order preserved")
	i, ok := s.VarIndex("B")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = s.VarIndex("C")
	assert.False(t, ok)
}

func TestSubLabels(t *testing.T) {
	s := NewSub("Main")
	require.NoError(t, s.AddLabel("start", 0))
	require.NoError(t, s.AddLabel("loop", 32))
	require.NoError(t, s.AddLabel("again", 32))
	require.ErrorIs(t, s.AddLabel("loop", 48), ErrDuplicateLabel)

	off, ok := s.LabelOffset("loop")
	assert.True(t, ok)
	assert.Equal(t, uint32(32), off)
	assert.Equal(t, []string{"loop", "again"}, s.LabelsAt(32))
	assert.Empty(t, s.LabelsAt(8))
}

func TestProgramSubsUnique(t *testing.T) {
	p := NewProgram()
	require.NoError(t, p.AddSub(NewSub("A")))
	require.NoError(t, p.AddSub(NewSub("B")))
	require.ErrorIs(t, p.AddSub(NewSub("A")), ErrDuplicateSub)

	assert.NotNil(t, p.Sub("B"))
	assert.Nil(t, p.Sub("C"))
	i, ok := p.SubIndex("B")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
}
