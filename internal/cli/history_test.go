package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/thecl/internal/store"
)

func TestHistory_RecordsRuns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "stage.tecl", sampleSource)

	_, stderr, code := runCLI(t, dir, "", "--history", "runs.db", "-c", "6", "stage.tecl", "stage.ecl")
	require.Equal(t, ExitSuccess, code, stderr)
	_, _, code = runCLI(t, dir, "", "--history", "runs.db", "-d", "6", "missing.ecl")
	require.Equal(t, ExitFailure, code)
	// Invalid invocations never reach the pipeline and are not recorded.
	_, _, code = runCLI(t, dir, "", "--history", "runs.db", "-d", "999", "stage.ecl")
	require.Equal(t, ExitFailure, code)

	st, err := store.Open(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	ok := runs[0]
	assert.Equal(t, "compile", ok.Mode)
	assert.Equal(t, uint(6), ok.Version)
	assert.Equal(t, "th06", ok.Family)
	assert.Equal(t, "stage.tecl", ok.Input)
	assert.Equal(t, "stage.ecl", ok.Output)
	assert.Equal(t, store.StatusOK, ok.Status)
	assert.NotEmpty(t, ok.ID)
	assert.Len(t, ok.InputDigest, 64)
	assert.Len(t, ok.OutputDigest, 64)
	assert.Len(t, ok.ProgramDigest, 64)

	failed := runs[1]
	assert.Equal(t, "decompile", failed.Mode)
	assert.Equal(t, "(stdout)", failed.Output)
	assert.Equal(t, store.StatusError, failed.Status)
	assert.Equal(t, "RESOURCE", failed.ErrorCode)
	assert.Equal(t, "couldn't open missing.ecl for reading: no such file or directory", failed.Message)
	assert.Empty(t, failed.InputDigest)
}

func TestHistory_FixedIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "stage.tecl", sampleSource)

	var stderr bytes.Buffer
	opts := &TranslateOptions{RootOptions: &RootOptions{Dir: dir, History: "runs.db"}, IDs: store.NewFixedGenerator("run-1")}
	rec := &runRecord{run: store.Run{Mode: "compile", Version: 6, Input: "stage.tecl", Output: "stage.ecl"}}
	require.NoError(t, recordRun(context.Background(), opts, rec, newLogger(&stderr, false)))

	st, err := store.Open(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}

func TestHistory_ListText(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "stage.tecl", sampleSource)

	_, _, code := runCLI(t, dir, "", "--history", "runs.db", "-c", "6", "stage.tecl", "stage.ecl")
	require.Equal(t, ExitSuccess, code)
	_, _, code = runCLI(t, dir, "", "--history", "runs.db", "-d", "6", "missing.ecl")
	require.Equal(t, ExitFailure, code)

	stdout, stderr, code := runCLI(t, dir, "", "history", "--history", "runs.db")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "SEQ")
	assert.Contains(t, stdout, "stage.tecl")
	assert.Contains(t, stdout, "error (RESOURCE)")
}

func TestHistory_ListJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "stage.tecl", sampleSource)

	for i := 0; i < 3; i++ {
		_, stderr, code := runCLI(t, dir, "", "--history", "runs.db", "-c", "6", "stage.tecl", "stage.ecl")
		require.Equal(t, ExitSuccess, code, stderr)
	}
	_, stderr, code := runCLI(t, dir, "", "--history", "runs.db", "-d", "6", "stage.ecl")
	require.Equal(t, ExitSuccess, code, stderr)

	stdout, stderr, code := runCLI(t, dir, "", "history", "--history", "runs.db", "--format", "json", "--limit", "2")
	require.Equal(t, ExitSuccess, code, stderr)

	var resp struct {
		Status string         `json:"status"`
		Data   []HistoryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "compile", resp.Data[0].Mode)
	assert.Equal(t, "decompile", resp.Data[1].Mode)
	assert.Less(t, resp.Data[0].Seq, resp.Data[1].Seq)

	// --input lists every run over the same content.
	stdout, stderr, code = runCLI(t, dir, "", "history", "--history", "runs.db", "--format", "json", "--input", "stage.tecl")
	require.Equal(t, ExitSuccess, code, stderr)
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Len(t, resp.Data, 3)
}

func TestHistory_Empty(t *testing.T) {
	dir := t.TempDir()

	stdout, stderr, code := runCLI(t, dir, "", "history", "--history", "runs.db")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "No runs recorded.\n", stdout)
}

func TestHistory_RequiresDatabase(t *testing.T) {
	_, stderr, code := runCLI(t, t.TempDir(), "", "history")
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, "thecl: no history database given (use --history)\n", stderr)
}
