package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/thecl/internal/ir"
)

// jumpSub builds a sub whose op at offset 16 jumps back to offset 0.
func jumpSub(t *testing.T) *ir.Sub {
	t.Helper()
	sub := ir.NewSub("Main")
	sub.Append(ir.NewLabel(0))
	a := ir.NewOp(1)
	a.Offset = 0
	sub.Append(a)
	sub.Append(ir.NewLabel(16))
	jmp := ir.NewOp(4).AddParam(ir.NewValueParam(ir.Int(-16))).AddParam(ir.NewValueParam(ir.Int(0)))
	jmp.Offset = 16
	sub.Append(jmp)
	sub.Append(ir.NewLabel(36))
	return sub
}

func TestResolveJumps(t *testing.T) {
	sub := jumpSub(t)
	ResolveJumps(sub, testSigs)

	jmp := sub.Ops()[1]
	require.True(t, jmp.Params[0].Label)
	assert.Equal(t, "offset_0", jmp.Params[0].Str())
	assert.False(t, jmp.Params[1].Label)

	assert.Equal(t, []ir.Label{{Name: "offset_0", Offset: 0}}, sub.Labels)
	var markers []uint32
	for _, in := range sub.Instrs {
		if lm, ok := in.(ir.LabelMarker); ok {
			markers = append(markers, lm.Offset)
		}
	}
	assert.Equal(t, []uint32{0}, markers)
}

func TestResolveJumpsLeavesUnalignedTargets(t *testing.T) {
	sub := jumpSub(t)
	sub.Ops()[1].Params[0].Set(ir.Int(-4))
	ResolveJumps(sub, testSigs)

	assert.False(t, sub.Ops()[1].Params[0].Label)
	assert.Empty(t, sub.Labels)
}

func TestResolveJumpsKeepsExistingNames(t *testing.T) {
	sub := jumpSub(t)
	require.NoError(t, sub.AddLabel("loop", 0))
	ResolveJumps(sub, testSigs)
	assert.Equal(t, "loop", sub.Ops()[1].Params[0].Str())
	assert.Equal(t, []ir.Label{{Name: "loop", Offset: 0}}, sub.Labels)
}

func TestNormalizeLabelsKeepsMarkers(t *testing.T) {
	sub := jumpSub(t)
	require.NoError(t, sub.AddLabel("end", 36))
	NormalizeLabels(sub)

	assert.Equal(t, []ir.Label{
		{Name: "offset_0", Offset: 0},
		{Name: "offset_16", Offset: 16},
		{Name: "end", Offset: 36},
	}, sub.Labels)
	assert.Len(t, sub.Instrs, 5)
	assert.False(t, sub.Ops()[1].Params[0].Label)
}

func TestUniqueLabel(t *testing.T) {
	sub := ir.NewSub("x")
	require.NoError(t, sub.AddLabel("offset_4", 8))
	assert.Equal(t, "offset_4_1", labelAt(sub, 4))
}
