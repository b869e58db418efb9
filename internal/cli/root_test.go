package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "thecl", cmd.Name())
	assert.Contains(t, cmd.Long, "ECL")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"history", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	chdirFlag := cmd.PersistentFlags().Lookup("chdir")
	require.NotNil(t, chdirFlag)
	assert.Equal(t, "C", chdirFlag.Shorthand)

	for _, name := range []string{"config", "history"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestTranslateFlags(t *testing.T) {
	cmd := NewRootCommand()

	tests := []struct {
		name      string
		shorthand string
	}{
		{"create", "c"},
		{"dump", "d"},
		{"map", "m"},
		{"raw", "r"},
		{"version", "V"},
		{"ir", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := cmd.Flags().Lookup(tt.name)
			require.NotNil(t, f)
			assert.Equal(t, tt.shorthand, f.Shorthand)
		})
	}
}

func TestHistoryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	historyCmd, _, err := cmd.Find([]string{"history"})
	require.NoError(t, err)

	limitFlag := historyCmd.Flags().Lookup("limit")
	require.NotNil(t, limitFlag)
	assert.Equal(t, "20", limitFlag.DefValue)

	assert.NotNil(t, historyCmd.Flags().Lookup("input"))
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want uint
	}{
		{"6", 6},
		{"103", 103},
		{" 12 ", 12},
		{"0", 0},
		{"", 0},
		{"abc", 0},
		{"-6", 0},
		{"6.5", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseVersion(tt.in), "parseVersion(%q)", tt.in)
	}
}

func TestVersionList(t *testing.T) {
	assert.Equal(t, "6, 7, 8, 9, 95, 10, 103, 11, 12, 125, 128, 13, 14, 143, 15, or 16", versionList())
}
