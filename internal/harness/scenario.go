package harness

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: a set of input files and
// a sequence of thecl invocations over them.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Files are text files written into the working directory.
	Files map[string]string `yaml:"files,omitempty"`

	// Binary are hex-encoded files written into the working directory.
	Binary map[string]string `yaml:"binary,omitempty"`

	// Steps run in order. Every step runs even if an earlier one failed.
	Steps []Step `yaml:"steps"`

	// Assertions validate the working directory after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one thecl invocation.
type Step struct {
	// Args are the command-line arguments, without the program name.
	Args []string `yaml:"args"`

	// Stdin is fed to the command. StdinFile names a working directory
	// file to feed instead.
	Stdin     string `yaml:"stdin,omitempty"`
	StdinFile string `yaml:"stdin_file,omitempty"`

	// Expect validates the outcome. If nil, the step must exit 0.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Exit is the expected exit status.
	Exit int `yaml:"exit"`

	// Stdout and Stderr match exactly when set.
	Stdout *string `yaml:"stdout,omitempty"`
	Stderr *string `yaml:"stderr,omitempty"`

	// StdoutFile names a working directory file stdout must equal.
	StdoutFile string `yaml:"stdout_file,omitempty"`

	// StderrContains is a substring stderr must contain.
	StderrContains string `yaml:"stderr_contains,omitempty"`
}

// Assertion validates the working directory after the steps ran.
type Assertion struct {
	// Type specifies the assertion type:
	// - "files_equal": File and Other are byte-identical
	// - "file_absent": File does not exist
	// - "file_contains": File contains Text
	// - "history_count": history database File holds Count runs matching Where
	Type string `yaml:"type"`

	File  string `yaml:"file,omitempty"`
	Other string `yaml:"other,omitempty"`
	Text  string `yaml:"text,omitempty"`

	// Where filters history runs by column (used by history_count).
	// All fields must match exactly.
	Where map[string]string `yaml:"where,omitempty"`

	// Count is the expected number of runs (used by history_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFilesEqual   = "files_equal"
	AssertFileAbsent   = "file_absent"
	AssertFileContains = "file_contains"
	AssertHistoryCount = "history_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "step:" vs "steps:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for _, name := range sortedKeys(s.Files) {
		if err := validatePath("files", name); err != nil {
			return err
		}
		if _, dup := s.Binary[name]; dup {
			return fmt.Errorf("files: %q is also listed under binary", name)
		}
	}
	for _, name := range sortedKeys(s.Binary) {
		if err := validatePath("binary", name); err != nil {
			return err
		}
		if _, err := decodeHex(s.Binary[name]); err != nil {
			return fmt.Errorf("binary[%q]: %w", name, err)
		}
	}

	for i, step := range s.Steps {
		if step.Stdin != "" && step.StdinFile != "" {
			return fmt.Errorf("steps[%d]: stdin and stdin_file are mutually exclusive", i)
		}
		if step.StdinFile != "" {
			if err := validatePath(fmt.Sprintf("steps[%d].stdin_file", i), step.StdinFile); err != nil {
				return err
			}
		}
		if e := step.Expect; e != nil {
			if e.Stdout != nil && e.StdoutFile != "" {
				return fmt.Errorf("steps[%d].expect: stdout and stdout_file are mutually exclusive", i)
			}
			if e.Exit < 0 {
				return fmt.Errorf("steps[%d].expect: exit must be non-negative", i)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.File == "" {
		return fmt.Errorf("assertions[%d]: file is required for %s", index, a.Type)
	}
	if err := validatePath(fmt.Sprintf("assertions[%d].file", index), a.File); err != nil {
		return err
	}

	switch a.Type {
	case AssertFilesEqual:
		if a.Other == "" {
			return fmt.Errorf("assertions[%d]: other is required for files_equal", index)
		}
		if err := validatePath(fmt.Sprintf("assertions[%d].other", index), a.Other); err != nil {
			return err
		}
	case AssertFileAbsent:
	case AssertFileContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for file_contains", index)
		}
	case AssertHistoryCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for history_count", index)
		}
		for _, col := range sortedKeys(a.Where) {
			if !validIdentifier.MatchString(col) {
				return fmt.Errorf("assertions[%d]: invalid column name %q", index, col)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// validatePath rejects paths that would escape the working directory.
func validatePath(field, name string) error {
	if name == "" || !filepath.IsLocal(name) {
		return fmt.Errorf("%s: %q must be a relative path inside the working directory", field, name)
	}
	return nil
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.Join(strings.Fields(s), ""))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
