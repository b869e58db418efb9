package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/roach88/thecl/internal/store"
)

// validIdentifier matches valid SQL identifiers (column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Trace    []StepTrace // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, step := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] thecl %s (exit %d)\n", step.Step, strings.Join(step.Args, " "), step.Exit)
		}
	}

	return buf.String()
}

// AssertionContext provides the working directory to assertions.
type AssertionContext struct {
	Dir string
	Ctx context.Context
}

func (a *AssertionContext) path(name string) string {
	return filepath.Join(a.Dir, name)
}

// assertFilesEqual checks that two files are byte-identical.
func assertFilesEqual(actx *AssertionContext, trace []StepTrace, assertion Assertion) error {
	a, err := os.ReadFile(actx.path(assertion.File))
	if err != nil {
		return missingFile(AssertFilesEqual, assertion.File, err, trace)
	}
	b, err := os.ReadFile(actx.path(assertion.Other))
	if err != nil {
		return missingFile(AssertFilesEqual, assertion.Other, err, trace)
	}
	if !bytes.Equal(a, b) {
		return &AssertionError{
			Type:     AssertFilesEqual,
			Expected: fmt.Sprintf("%s and %s to be identical", assertion.File, assertion.Other),
			Actual:   fmt.Sprintf("%d bytes vs %d bytes, first difference at %d", len(a), len(b), firstDifference(a, b)),
			Trace:    trace,
		}
	}
	return nil
}

// assertFileAbsent checks that a file was never created.
func assertFileAbsent(actx *AssertionContext, trace []StepTrace, assertion Assertion) error {
	_, err := os.Stat(actx.path(assertion.File))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFileAbsent,
		Expected: fmt.Sprintf("%s not to exist", assertion.File),
		Actual:   "file exists",
		Trace:    trace,
	}
}

// assertFileContains checks that a file contains the given text.
func assertFileContains(actx *AssertionContext, trace []StepTrace, assertion Assertion) error {
	data, err := os.ReadFile(actx.path(assertion.File))
	if err != nil {
		return missingFile(AssertFileContains, assertion.File, err, trace)
	}
	if !bytes.Contains(data, []byte(assertion.Text)) {
		return &AssertionError{
			Type:     AssertFileContains,
			Expected: fmt.Sprintf("%s to contain %q", assertion.File, assertion.Text),
			Actual:   "text not found",
			Trace:    trace,
		}
	}
	return nil
}

// assertHistoryCount counts the runs in a history database matching the
// where clause. Queries use parameterized SQL; column names are validated
// against a whitelist pattern.
func assertHistoryCount(actx *AssertionContext, trace []StepTrace, assertion Assertion) error {
	path := actx.path(assertion.File)
	if _, err := os.Stat(path); err != nil {
		return missingFile(AssertHistoryCount, assertion.File, err, trace)
	}
	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("open history %s: %w", assertion.File, err)
	}
	defer st.Close()

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}
	query := "SELECT COUNT(*) FROM runs"
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	ctx := actx.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	var count int
	if err := st.DB().QueryRowContext(ctx, query, whereArgs...).Scan(&count); err != nil {
		return &AssertionError{
			Type:     AssertHistoryCount,
			Expected: fmt.Sprintf("query runs in %s", assertion.File),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertHistoryCount,
			Expected: fmt.Sprintf("%d runs where %s", assertion.Count, formatWhereClause(assertion.Where)),
			Actual:   fmt.Sprintf("%d runs", count),
			Trace:    trace,
		}
	}
	return nil
}

// buildWhereClause constructs parameterized WHERE clause from where.
// Returns SQL fragment, arguments slice, and error. Keys are sorted for determinism.
func buildWhereClause(where map[string]string) (string, []interface{}, error) {
	if len(where) == 0 {
		return "", nil, nil
	}
	var conds []string
	var args []interface{}
	for _, col := range sortedKeys(where) {
		if !validIdentifier.MatchString(col) {
			return "", nil, fmt.Errorf("invalid column name %q: must match pattern %s", col, validIdentifier.String())
		}
		conds = append(conds, col+" = ?")
		args = append(args, where[col])
	}
	return strings.Join(conds, " AND "), args, nil
}

// formatWhereClause formats where for error messages.
func formatWhereClause(where map[string]string) string {
	if len(where) == 0 {
		return "(all)"
	}
	parts := make([]string, 0, len(where))
	for _, col := range sortedKeys(where) {
		parts = append(parts, fmt.Sprintf("%s=%q", col, where[col]))
	}
	return strings.Join(parts, ", ")
}

func missingFile(kind, name string, err error, trace []StepTrace) error {
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%s to exist", name),
		Actual:   err.Error(),
		Trace:    trace,
	}
}

func firstDifference(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// EvaluateAssertions evaluates all assertions against the working directory.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFilesEqual:
			err = assertFilesEqual(actx, result.Trace, assertion)
		case AssertFileAbsent:
			err = assertFileAbsent(actx, result.Trace, assertion)
		case AssertFileContains:
			err = assertFileContains(actx, result.Trace, assertion)
		case AssertHistoryCount:
			err = assertHistoryCount(actx, result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
