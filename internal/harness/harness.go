package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/roach88/thecl/internal/ir"
)

// WorkPlaceholder replaces the working directory in recorded output.
const WorkPlaceholder = "$WORK"

// Runner runs thecl with args in dir and returns its exit status.
type Runner func(ctx context.Context, dir string, args []string, stdin io.Reader, stdout, stderr io.Writer) int

// Harness is the test execution engine. It runs one scenario in its own
// working directory.
type Harness struct {
	dir    string
	runner Runner
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh temporary directory that is removed
// afterwards.
//
// Execution flow:
// 1. Create the working directory and write the scenario files
// 2. Run each step, recording its trace and checking its expect clause
// 3. Evaluate assertions against the working directory
// 4. Return result with pass/fail, trace, and errors
func Run(ctx context.Context, scenario *Scenario, runner Runner) (*Result, error) {
	dir, err := os.MkdirTemp("", "thecl-scenario-")
	if err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	defer os.RemoveAll(dir)

	h := &Harness{dir: dir, runner: runner}
	if err := h.setup(scenario); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute step %d: %w", i, err)
		}
	}

	actx := &AssertionContext{Dir: dir, Ctx: ctx}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// setup writes the scenario files into the working directory.
func (h *Harness) setup(s *Scenario) error {
	for _, name := range sortedKeys(s.Files) {
		if err := h.writeFile(name, []byte(s.Files[name])); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(s.Binary) {
		data, err := decodeHex(s.Binary[name])
		if err != nil {
			return fmt.Errorf("binary[%q]: %w", name, err)
		}
		if err := h.writeFile(name, data); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) writeFile(name string, data []byte) error {
	path := filepath.Join(h.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// executeStep runs one step and validates its expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	var stdin io.Reader = strings.NewReader(step.Stdin)
	if step.StdinFile != "" {
		data, err := os.ReadFile(filepath.Join(h.dir, step.StdinFile))
		if err != nil {
			return fmt.Errorf("stdin_file: %w", err)
		}
		stdin = bytes.NewReader(data)
	}

	var stdout, stderr bytes.Buffer
	exit := h.runner(ctx, h.dir, step.Args, stdin, &stdout, &stderr)

	args := step.Args
	if args == nil {
		args = []string{}
	}
	result.AddStep(StepTrace{
		Step:   i,
		Args:   args,
		Exit:   exit,
		Stdout: h.normalize(stdout.Bytes()),
		Stderr: h.normalize(stderr.Bytes()),
	})

	expect := step.Expect
	if expect == nil {
		expect = &ExpectClause{}
	}
	for _, msg := range h.checkExpect(expect, exit, stdout.Bytes(), stderr.String()) {
		result.AddError(fmt.Sprintf("steps[%d] %v: %s", i, step.Args, msg))
	}
	return nil
}

func (h *Harness) checkExpect(e *ExpectClause, exit int, stdout []byte, stderr string) []string {
	var errs []string
	if exit != e.Exit {
		errs = append(errs, fmt.Sprintf("exit = %d, want %d (stderr: %q)", exit, e.Exit, stderr))
	}
	if e.Stdout != nil && string(stdout) != *e.Stdout {
		errs = append(errs, fmt.Sprintf("stdout = %q, want %q", stdout, *e.Stdout))
	}
	if e.StdoutFile != "" {
		want, err := os.ReadFile(filepath.Join(h.dir, e.StdoutFile))
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("stdout_file: %v", err))
		case !bytes.Equal(stdout, want):
			errs = append(errs, fmt.Sprintf("stdout does not match %s", e.StdoutFile))
		}
	}
	if e.Stderr != nil && stderr != *e.Stderr {
		errs = append(errs, fmt.Sprintf("stderr = %q, want %q", stderr, *e.Stderr))
	}
	if e.StderrContains != "" && !strings.Contains(stderr, e.StderrContains) {
		errs = append(errs, fmt.Sprintf("stderr %q does not contain %q", stderr, e.StderrContains))
	}
	return errs
}

// normalize makes recorded output independent of the working directory.
func (h *Harness) normalize(out []byte) string {
	if !utf8.Valid(out) {
		return "blob:" + ir.BlobDigest(out)
	}
	return strings.ReplaceAll(string(out), h.dir, WorkPlaceholder)
}
