package asm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/thecl/internal/backend"
	"github.com/roach88/thecl/internal/eclmap"
	"github.com/roach88/thecl/internal/ir"
)

func testDialect() *Dialect {
	return &Dialect{
		Family:     "test",
		Includes:   true,
		Data:       true,
		Rank:       RankFormat{Letters: "ENHL", Fixed: 0xf0, Width: 8},
		HeaderSize: 16,
		MaxOpcode:  0xffff,
		Codec: backend.Codec{
			Sigs: backend.Signatures{
				10: "",
				11: "S",
				12: "oS",
				13: "f",
				14: "z",
				15: "SfS",
			},
			Strings: backend.StringSized,
		},
	}
}

func testMaps(t *testing.T) *eclmap.Set {
	t.Helper()
	maps := eclmap.NewSet()
	require.NoError(t, maps.Load(strings.NewReader("!eclmap\n!ins_names\n11 wait\n!gvar_names\n-9985 gf\n"), "test.eclm"))
	return maps
}

const canonicalSource = `anim {
    "a.anm";
}

ecli {
    "b.ecl";
}

data {
    #[00 01 ff];
}

sub Main {
    var A B;
    !EN
    30:
loop:
    wait(1);
    ins_12(loop, $B);
    ins_13(%gf);
    ins_14("テスト");
    ins_99<2, 0x1>(#[01 02]);
    !*
    60:
    ins_15(-1, 2.5f, 0);
}

sub "Sub 2" {
    ins_10();
}
`

func parseString(t *testing.T, src string) *ir.Program {
	t.Helper()
	p, err := Parse(strings.NewReader(src), testDialect(), testMaps(t))
	require.NoError(t, err)
	return p
}

func TestParseProgram(t *testing.T) {
	p := parseString(t, canonicalSource)
	defer p.Free()

	assert.Equal(t, []string{"a.anm"}, p.AnimNames)
	assert.Equal(t, []string{"b.ecl"}, p.EcliNames)
	require.Len(t, p.LocalData, 1)
	assert.Equal(t, []byte{0, 1, 0xff}, p.LocalData[0].Data)

	require.Len(t, p.Subs, 2)
	main := p.Subs[0]
	assert.Equal(t, "Main", main.Name)
	assert.Equal(t, []string{"A", "B"}, main.Vars)
	assert.Equal(t, []ir.Label{{Name: "loop", Offset: 0}}, main.Labels)
	assert.Equal(t, "Sub 2", p.Subs[1].Name)

	ops := main.Ops()
	require.Len(t, ops, 6)

	offsets := make([]uint32, len(ops))
	for i, op := range ops {
		offsets[i] = op.Offset
	}
	assert.Equal(t, []uint32{0, 20, 44, 64, 92, 110}, offsets)

	assert.Equal(t, 11, ops[0].ID)
	assert.Equal(t, uint32(30), ops[0].Time)
	assert.Equal(t, uint32(0xf3), ops[0].Rank)

	assert.True(t, ops[1].Params[0].Label)
	assert.Equal(t, "loop", ops[1].Params[0].Str())
	assert.True(t, ops[1].Params[1].Var)
	assert.Equal(t, int64(4), ops[1].Params[1].Int())

	assert.True(t, ops[2].Params[0].Var)
	assert.Equal(t, float32(-9985), ops[2].Params[0].Float())

	assert.Equal(t, "テスト", ops[3].Params[0].Str())

	require.NotNil(t, ops[4].Raw)
	assert.Equal(t, ir.RawHeader{Count: 2, Mask: 1}, *ops[4].Raw)

	assert.Equal(t, uint32(60), ops[5].Time)
	assert.Equal(t, uint32(0xff), ops[5].Rank)
}

func TestPrintRoundTrip(t *testing.T) {
	p := parseString(t, canonicalSource)
	defer p.Free()

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, p, testDialect(), testMaps(t)))
	assert.Equal(t, canonicalSource, buf.String())
}

func TestParseTimeAndRank(t *testing.T) {
	p := parseString(t, `sub A {
    ins_10();
    10:
    +5:
    !H
    ins_10();
    !0x12
    ins_10();
}`)
	defer p.Free()

	ops := p.Subs[0].Ops()
	assert.Equal(t, uint32(0), ops[0].Time)
	assert.Equal(t, uint32(0xff), ops[0].Rank)
	assert.Equal(t, uint32(15), ops[1].Time)
	assert.Equal(t, uint32(0xf4), ops[1].Rank)
	assert.Equal(t, uint32(0x12), ops[2].Rank)
}

func TestParseExpressions(t *testing.T) {
	p := parseString(t, `sub A {
    ins_11((1 + 2 * 3));
    ins_13((1.5f * 2));
    ins_13(2);
    ins_15((-4), (10 / 3), -7);
}`)
	defer p.Free()

	ops := p.Subs[0].Ops()
	assert.Equal(t, int64(7), ops[0].Params[0].Int())
	assert.True(t, ops[0].Params[0].IsExpression)

	assert.Equal(t, float32(3), ops[1].Params[0].Float())
	assert.True(t, ops[1].Params[0].IsExpression)

	// Integer literals in float slots are promoted.
	assert.Equal(t, ir.KindFloat, ops[2].Params[0].Kind())
	assert.Equal(t, float32(2), ops[2].Params[0].Float())
	assert.False(t, ops[2].Params[0].IsExpression)

	assert.Equal(t, ir.KindFloat, ops[3].Params[1].Kind())
	assert.Equal(t, float32(3), ops[3].Params[1].Float())
	assert.Equal(t, int64(-7), ops[3].Params[2].Int())
}

func TestParseVariables(t *testing.T) {
	p := parseString(t, `sub A {
    var X Y gf;
    ins_11($Y);
    ins_11($gf);
    ins_11($-9985);
    ins_13(%X);
}`)
	defer p.Free()

	ops := p.Subs[0].Ops()
	assert.Equal(t, int64(4), ops[0].Params[0].Int())
	assert.Equal(t, int64(8), ops[1].Params[0].Int(), "locals shadow globals")
	assert.Equal(t, int64(-9985), ops[2].Params[0].Int())
	assert.Equal(t, float32(0), ops[3].Params[0].Float())

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, p, testDialect(), testMaps(t)))
	assert.Contains(t, buf.String(), "wait($gf);")
	assert.Contains(t, buf.String(), "wait($-9985);")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown block", "foo {}", `unknown block "foo"`},
		{"unknown instruction", "sub A { nope(); }", `unknown instruction "nope"`},
		{"undefined label", "sub A { ins_12(missing, 0); }", `undefined label "missing"`},
		{"duplicate label", "sub A { x: x: }", "duplicate label"},
		{"duplicate sub", "sub A {} sub A {}", "duplicate subroutine"},
		{"duplicate var", "sub A { var X X; }", "duplicate variable"},
		{"arity", "sub A { ins_11(); }", "takes 1 parameters, got 0"},
		{"kind", `sub A { ins_11("s"); }`, "parameter 1 of ins_11 must be int, got string"},
		{"label in int slot", "sub A { x: ins_11(x); }", "cannot be a label"},
		{"unknown variable", "sub A { ins_11($nope); }", `unknown variable "$nope"`},
		{"bad rank letter", "sub A { !Q }", `unknown rank letter 'Q'`},
		{"rank range", "sub A { !0x100 }", "out of range"},
		{"opcode range", "sub A { ins_70000(); }", "opcode 70000 out of range"},
		{"raw needs bytes", "sub A { ins_1<1, 0>(1); }", "exactly one byte array"},
		{"division by zero", "sub A { ins_11((1 / 0)); }", "division by zero"},
		{"float suffix", "sub A { ins_13(1.5); }", "needs an f suffix"},
		{"unterminated string", "sub A { ins_14(\"abc); }", "unterminated string"},
		{"unterminated comment", "/* sub", "unterminated comment"},
		{"missing semicolon", "sub A { ins_10() }", `expected ";"`},
		{"keyword label", "sub A { var: }", "expected a variable name"},
		{"not representable", "sub A { ins_14(\"\U0001F600\"); }", "Shift-JIS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(strings.NewReader(tt.src), testDialect(), testMaps(t))
			require.Error(t, err)
			assert.Nil(t, p)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse(strings.NewReader("sub A {\n    ins_10();\n    bogus();\n}"), testDialect(), nil)
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 3, se.Line)
	assert.Equal(t, 5, se.Col)
}

func TestDialectRestrictions(t *testing.T) {
	d := testDialect()
	d.Includes = false
	d.Data = false

	_, err := Parse(strings.NewReader(`anim { "a"; }`), d, nil)
	assert.ErrorContains(t, err, "anim blocks are not supported by test")
	_, err = Parse(strings.NewReader(`data { #[00]; }`), d, nil)
	assert.ErrorContains(t, err, "data blocks are not supported by test")
}

func TestParseComments(t *testing.T) {
	p := parseString(t, `// leading
sub A { /* inline */ ins_10(); // trailing
}`)
	defer p.Free()
	assert.Len(t, p.Subs[0].Ops(), 1)
}

func TestPrintUnnamedLabelsAndRefs(t *testing.T) {
	sub := ir.NewSub("A")
	sub.Append(ir.NewLabel(0))
	op := ir.NewOp(10)
	op.Ref = "Sub1"
	sub.Append(op)
	sub.Append(ir.NewLabel(16))
	p := ir.NewProgram()
	require.NoError(t, p.AddSub(sub))
	defer p.Free()

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, p, testDialect(), nil))
	assert.Equal(t, "sub A {\noffset_0:\n    ins_10(); // Sub1\noffset_16:\n}\n", buf.String())
}

func TestRankFormat(t *testing.T) {
	f := RankFormat{Letters: "ENHL", Fixed: 0xfff0, Width: 16}
	tests := []struct {
		mask uint32
		text string
	}{
		{0xffff, "*"},
		{0xfff1, "E"},
		{0xfffa, "NL"},
		{0x0001, "0x1"},
		{0xfff0, "0xfff0"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.text, f.Format(tt.mask))
			back, err := f.Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.mask, back)
		})
	}

	_, err := f.Parse("EE")
	assert.ErrorContains(t, err, "repeated")
	_, err = f.Parse("0x10000")
	assert.ErrorContains(t, err, "out of range")
}
