package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/thecl/internal/ir"
)

// Snapshot serializes the trace of a scenario run as canonical JSON.
// Golden files hold exactly these bytes.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	steps := make([]any, len(result.Trace))
	for i, s := range result.Trace {
		steps[i] = map[string]any{
			"step":   s.Step,
			"args":   s.Args,
			"exit":   s.Exit,
			"stdout": s.Stdout,
			"stderr": s.Stderr,
		}
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"trace":         steps,
	})
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Assertion failures and golden
// mismatches fail t.
func RunWithGolden(t *testing.T, scenario *Scenario, runner Runner) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario, runner)
	if err != nil {
		return nil, err
	}
	for _, e := range result.Errors {
		t.Error(e)
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
