package eclmap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMap = `!eclmap
# opcodes
!ins_names
10 ret
23 wait
!gvar_names
-10000 I0
-9999 F0
`

func TestLoad(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Load(strings.NewReader(sampleMap), "sample.eclm"))

	name, ok := s.OpcodeName(23)
	require.True(t, ok)
	assert.Equal(t, "wait", name)

	id, ok := s.Opcode("ret")
	require.True(t, ok)
	assert.Equal(t, 10, id)

	num, ok := s.Global("F0")
	require.True(t, ok)
	assert.Equal(t, -9999, num)

	assert.Equal(t, 2, s.Opcodes.Len())
	assert.Equal(t, []int{-10000, -9999}, s.Globals.Numbers())
}

func TestLoadMergesLaterWins(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Load(strings.NewReader(sampleMap), "a"))
	require.NoError(t, s.Load(strings.NewReader("!eclmap\n!ins_names\n23 sleep\n11 ret\n"), "b"))

	name, _ := s.OpcodeName(23)
	assert.Equal(t, "sleep", name)
	_, ok := s.Opcode("wait")
	assert.False(t, ok, "replaced name no longer resolves")

	id, _ := s.Opcode("ret")
	assert.Equal(t, 11, id)
	_, ok = s.OpcodeName(10)
	assert.False(t, ok, "name moved to another number")
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		line    int
		message string
	}{
		{"missing header", "!ins_names\n10 ret\n", 1, "missing !eclmap header"},
		{"empty file", "", 1, "missing !eclmap header"},
		{"unknown section", "!eclmap\n!timeline\n", 2, "unknown section"},
		{"entry before section", "!eclmap\n10 ret\n", 2, "outside of a section"},
		{"bad number", "!eclmap\n!ins_names\nten ret\n", 3, "invalid number"},
		{"bad name", "!eclmap\n!ins_names\n10 1ret\n", 3, "invalid name"},
		{"ins_N reserved", "!eclmap\n!ins_names\n10 ins_11\n", 3, "reserved"},
		{"keyword reserved", "!eclmap\n!ins_names\n10 sub\n", 3, "reserved"},
		{"too many fields", "!eclmap\n!ins_names\n10 ret extra\n", 3, "expected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSet().Load(strings.NewReader(tt.input), "bad.eclm")
			require.Error(t, err)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.line, perr.Line)
			assert.Contains(t, perr.Message, tt.message)
			assert.Contains(t, err.Error(), "bad.eclm:")
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "th10.eclm")
	require.NoError(t, os.WriteFile(path, []byte(sampleMap), 0644))

	s := NewSet()
	require.NoError(t, s.LoadFile(path))
	assert.Equal(t, 2, s.Opcodes.Len())

	err := s.LoadFile(filepath.Join(t.TempDir(), "missing.eclm"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "couldn't open")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNilSetIsEmpty(t *testing.T) {
	var s *Set
	_, ok := s.OpcodeName(1)
	assert.False(t, ok)
	_, ok = s.Global("I0")
	assert.False(t, ok)

	var tbl *Table
	assert.Equal(t, 0, tbl.Len())
	assert.Nil(t, tbl.Numbers())
}
