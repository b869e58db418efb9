package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalKeyOrder(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{
		"zebra": 1,
		"apple": "a",
		"Apple": true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"Apple":true,"apple":"a","zebra":1}`, string(data))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	data, err := MarshalCanonical("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(data))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "e" + combining acute accent normalizes to U+00E9.
	data, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(data))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	data, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(data))

	data, err = MarshalCanonical(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(data), "escaped backslash stays escaped")
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)
	_, err = MarshalCanonical(1.5)
	assert.Error(t, err)
	_, err = MarshalCanonical(map[string]any{"x": []any{struct{}{}}})
	assert.Error(t, err)
}

func TestDocumentProgram(t *testing.T) {
	p := NewProgram()
	p.AnimNames = []string{"enemy.anm"}
	sub := NewSub("Main")
	require.NoError(t, sub.AddLabel("top", 0))
	sub.Append(NewLabel(0))
	op := NewOp(12)
	op.AddParam(NewLabelRef("top")).AddParam(NewValueParam(Float(0.5)))
	op.Params[1].IsExpression = true
	sub.Append(op)
	require.NoError(t, p.AddSub(sub))

	data, err := MarshalCanonical(Document(p))
	require.NoError(t, err)

	s := string(data)
	assert.True(t, strings.HasPrefix(s, `{"anim":["enemy.anm"],"data":[],"ecli":[],"ir_version":"1","subs":[`))
	assert.Contains(t, s, `{"kind":"string","label":true,"value":"top"}`)
	assert.Contains(t, s, `{"expr":true,"kind":"float","value":"0.5"}`)
	assert.Contains(t, s, `{"offset":0,"type":"label"}`)
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "1", FormatFloat(1))
	assert.Equal(t, "0.1", FormatFloat(0.1))
	assert.Equal(t, "-2.5", FormatFloat(-2.5))
	assert.Equal(t, "1e+10", FormatFloat(1e10))
}
