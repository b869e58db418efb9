package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Verify all payload types implement Value (compile-time check via assignment)
	var _ Value = Int(1)
	var _ Value = Float(1.5)
	var _ Value = String("s")
	var _ Value = Bytes{0x01}
}

func TestValueKinds(t *testing.T) {
	tests := []struct {
		val  Value
		kind Kind
		name string
	}{
		{Int(-3), KindInt, "int"},
		{Float(2.5), KindFloat, "float"},
		{String("abc"), KindString, "string"},
		{Bytes{0xff}, KindBytes, "bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.val.Kind())
			assert.Equal(t, tt.name, tt.kind.String())
			assert.True(t, tt.kind.Valid())
		})
	}
}

func TestZero(t *testing.T) {
	assert.Equal(t, Int(0), Zero(KindInt))
	assert.Equal(t, Float(0), Zero(KindFloat))
	assert.Equal(t, String(""), Zero(KindString))
	assert.Equal(t, Bytes{}, Zero(KindBytes))
	assert.Panics(t, func() { Zero(Kind(99)) })
	assert.False(t, Kind(0).Valid())
}

func TestNewParamPreTagged(t *testing.T) {
	for _, k := range []Kind{KindInt, KindFloat, KindString, KindBytes} {
		p := NewParam(k)
		assert.Equal(t, k, p.Kind())
		require.NotNil(t, p.Value())
		assert.Equal(t, k, p.Value().Kind())
		assert.False(t, p.IsExpression, "expression flag defaults to false")
	}
}

func TestParamTagNeverChanges(t *testing.T) {
	p := NewParam(KindInt)
	p.Set(Int(42))
	assert.Equal(t, int64(42), p.Int())

	assert.Panics(t, func() { p.Set(Float(1)) })
	assert.Panics(t, func() { p.Set(nil) })
	assert.Equal(t, KindInt, p.Kind())
	assert.Equal(t, int64(42), p.Int())
}

func TestParamAccessorsPanicOnWrongKind(t *testing.T) {
	p := NewValueParam(String("name"))
	assert.Equal(t, "name", p.Str())
	assert.Panics(t, func() { p.Int() })
	assert.Panics(t, func() { p.Float() })
	assert.Panics(t, func() { p.Bytes() })
}

func TestParamFreeOnce(t *testing.T) {
	p := NewValueParam(Bytes{1, 2, 3})
	p.Free()
	assert.True(t, p.Freed())
	assert.Nil(t, p.Value())
	assert.Equal(t, KindBytes, p.Kind(), "kind survives Free")

	assert.NotPanics(t, func() { p.Free() }, "second Free is a no-op")
	assert.Panics(t, func() { p.Set(Bytes{}) })
	assert.Panics(t, func() { p.Bytes() })

	var nilParam *Param
	assert.NotPanics(t, func() { nilParam.Free() })
}

func TestNewLabelRef(t *testing.T) {
	p := NewLabelRef("loop")
	assert.True(t, p.Label)
	assert.Equal(t, KindString, p.Kind())
	assert.Equal(t, "loop", p.Str())
}
