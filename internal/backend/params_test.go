package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/thecl/internal/ir"
)

var testSigs = Signatures{
	1: "",
	2: "Sf",
	3: "z",
	4: "oS",
	5: "Sm",
}

func encodeOp(t *testing.T, c Codec, op *ir.Op, sub *ir.Sub) []byte {
	t.Helper()
	var w Writer
	require.NoError(t, c.EncodeParams(&w, op, sub))
	size, err := c.PayloadSize(op)
	require.NoError(t, err)
	require.Equal(t, int(size), w.Len())
	return w.Bytes()
}

func TestDecodeParamsBySignature(t *testing.T) {
	c := Codec{Sigs: testSigs}

	var w Writer
	w.U32(0xffffffff)
	w.U32(0x3fc00000) // 1.5
	op := ir.NewOp(2)
	c.DecodeParams(op, w.Bytes(), 2, 0x1)

	require.Nil(t, op.Raw)
	require.Len(t, op.Params, 2)
	assert.Equal(t, int64(-1), op.Params[0].Int())
	assert.True(t, op.Params[0].Var)
	assert.Equal(t, float32(1.5), op.Params[1].Float())
	assert.False(t, op.Params[1].Var)
	assert.Equal(t, uint32(0x1), Mask(op))
	assert.Equal(t, 2, Count(op))

	assert.Equal(t, w.Bytes(), encodeOp(t, c, op, ir.NewSub("x")))
}

func TestDecodeParamsStrings(t *testing.T) {
	for _, layout := range []StringLayout{StringPadded, StringSized} {
		c := Codec{Sigs: testSigs, Strings: layout}
		src := ir.NewOp(3).AddParam(ir.NewValueParam(ir.String("あいう")))
		payload := encodeOp(t, c, src, ir.NewSub("x"))
		assert.Zero(t, len(payload)%4)

		op := ir.NewOp(3)
		c.DecodeParams(op, payload, -1, 0)
		require.Nil(t, op.Raw)
		assert.Equal(t, "あいう", op.Params[0].Str())
	}
}

func TestDecodeParamsFallsBackToRaw(t *testing.T) {
	c := Codec{Sigs: testSigs}
	tests := []struct {
		name    string
		id      int
		payload []byte
		count   int
		mask    uint32
	}{
		{"unknown opcode", 99, []byte{1, 2, 3, 4}, 1, 0},
		{"short payload", 2, []byte{1, 2, 3, 4}, 2, 0},
		{"trailing bytes", 1, []byte{1}, 0, 0},
		{"count mismatch", 2, make([]byte, 8), 3, 0},
		{"mask beyond signature", 2, make([]byte, 8), 2, 0x4},
		{"string variable", 3, []byte{'a', 0, 0, 0}, 1, 0x1},
		{"nonzero padding", 3, []byte{'a', 0, 1, 0}, 1, 0},
		{"nan float", 2, []byte{0, 0, 0, 0, 0, 0, 0xc0, 0x7f}, 2, 0},
		{"fractional float variable", 2, []byte{0, 0, 0, 0, 0, 0, 0xc0, 0x3f}, 2, 0x2},
		{"negative zero float variable", 2, []byte{4, 0, 0, 0, 0, 0, 0, 0x80}, 2, 0x2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := ir.NewOp(tt.id)
			c.DecodeParams(op, tt.payload, tt.count, tt.mask)
			require.NotNil(t, op.Raw)
			assert.Equal(t, tt.count, op.Raw.Count)
			assert.Equal(t, tt.mask, op.Raw.Mask)
			require.Len(t, op.Params, 1)
			assert.Equal(t, tt.payload, op.Params[0].Bytes())

			assert.Equal(t, tt.payload, encodeOp(t, c, op, ir.NewSub("x")))
			assert.Equal(t, tt.mask, Mask(op))
			assert.Equal(t, tt.count, Count(op))
		})
	}
}

func TestDecodeParamsRest(t *testing.T) {
	c := Codec{Sigs: testSigs}
	op := ir.NewOp(5)
	c.DecodeParams(op, []byte{7, 0, 0, 0, 0xaa, 0xbb}, -1, 0)
	require.Nil(t, op.Raw)
	require.Len(t, op.Params, 2)
	assert.Equal(t, int64(7), op.Params[0].Int())
	assert.Equal(t, []byte{0xaa, 0xbb}, op.Params[1].Bytes())
}

func TestEncodeParamsResolvesLabels(t *testing.T) {
	c := Codec{Sigs: testSigs}
	sub := ir.NewSub("Main")
	require.NoError(t, sub.AddLabel("top", 8))

	op := ir.NewOp(4).AddParam(ir.NewLabelRef("top")).AddParam(ir.NewValueParam(ir.Int(3)))
	op.Offset = 40
	assert.Equal(t, []byte{0xe0, 0xff, 0xff, 0xff, 3, 0, 0, 0}, encodeOp(t, c, op, sub))

	bad := ir.NewOp(4).AddParam(ir.NewLabelRef("nowhere"))
	var w Writer
	assert.ErrorContains(t, c.EncodeParams(&w, bad, sub), `undefined label "nowhere"`)
}

func TestEncodeParamsIntRange(t *testing.T) {
	c := Codec{}
	var w Writer
	ok := ir.NewOp(1).AddParam(ir.NewValueParam(ir.Int(0xffffffff)))
	require.NoError(t, c.EncodeParams(&w, ok, ir.NewSub("x")))
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, w.Bytes())

	big := ir.NewOp(1).AddParam(ir.NewValueParam(ir.Int(1 << 32)))
	assert.ErrorContains(t, c.EncodeParams(&w, big, ir.NewSub("x")), "does not fit")
}
