package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
version: 12
maps: ["th12.eclm"]
raw: true
format: "json"
verbose: true
history: "runs.db"
`), "thecl.cue")
	require.NoError(t, err)

	assert.Equal(t, uint(12), cfg.Version)
	assert.Equal(t, []string{"th12.eclm"}, cfg.Maps)
	assert.True(t, cfg.Raw)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "runs.db", cfg.History)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil, "thecl.cue")
	require.NoError(t, err)
	assert.Equal(t, uint(0), cfg.Version)
	assert.Empty(t, cfg.Maps)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `version: `},
		{"unknown field", `colour: "red"`},
		{"bad format", `format: "xml"`},
		{"negative version", `version: -1`},
		{"wrong type", `raw: "yes"`},
		{"not concrete", `version: int`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.cue")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "bad.cue")
		})
	}
}

func TestLoadResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(`maps: ["a.eclm", "/abs/b.eclm"]
history: "h.db"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.eclm"), "/abs/b.eclm"}, cfg.Maps)
	assert.Equal(t, filepath.Join(dir, "h.db"), cfg.History)
	assert.Equal(t, path, cfg.Path)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	assert.ErrorContains(t, err, "couldn't open")
}

func TestLoadDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadDefault(dir)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte("version: 6\n"), 0o644))
	cfg, err = LoadDefault(dir)
	require.NoError(t, err)
	assert.Equal(t, uint(6), cfg.Version)
}
