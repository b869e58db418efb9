package eclmap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Header is the mandatory first line of a map file.
const Header = "!eclmap"

// Section names.
const (
	SectionInsNames  = "!ins_names"
	SectionGvarNames = "!gvar_names"
)

var (
	identPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	insNamePattern = regexp.MustCompile(`^ins_[0-9]+$`)
)

// reserved words of the text form cannot be used as mnemonics.
var reserved = map[string]bool{
	"sub": true, "var": true, "anim": true, "ecli": true, "data": true,
}

// Set is the pair of process-wide name tables: opcode mnemonics and global
// variable names. A nil *Set behaves as an empty one.
type Set struct {
	Opcodes *Table
	Globals *Table
}

// NewSet creates a Set with two empty tables.
func NewSet() *Set {
	return &Set{Opcodes: NewTable(), Globals: NewTable()}
}

// OpcodeName returns the mnemonic of opcode id.
func (s *Set) OpcodeName(id int) (string, bool) {
	if s == nil {
		return "", false
	}
	return s.Opcodes.Name(id)
}

// Opcode returns the opcode for a mnemonic.
func (s *Set) Opcode(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	return s.Opcodes.Number(name)
}

// GlobalName returns the name of global variable num.
func (s *Set) GlobalName(num int) (string, bool) {
	if s == nil {
		return "", false
	}
	return s.Globals.Name(num)
}

// Global returns the number of the global variable called name.
func (s *Set) Global(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	return s.Globals.Number(name)
}

// ParseError reports a malformed map file line.
type ParseError struct {
	Source  string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Message)
}

// LoadFile loads the map file at path into s.
func (s *Set) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		var pe *fs.PathError
		if errors.As(err, &pe) {
			err = pe.Err
		}
		return fmt.Errorf("couldn't open %s for reading: %w", path, err)
	}
	defer f.Close()
	return s.Load(f, path)
}

// Load reads a map file from r. source names the input in errors.
// Entries are applied as they are read; on error s keeps the entries
// loaded before the failing line.
func (s *Set) Load(r io.Reader, source string) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	var table *Table

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if lineNo == 1 {
			if line != Header {
				return &ParseError{Source: source, Line: lineNo, Message: fmt.Sprintf("missing %s header", Header)}
			}
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "!") {
			switch line {
			case SectionInsNames:
				table = s.Opcodes
			case SectionGvarNames:
				table = s.Globals
			default:
				return &ParseError{Source: source, Line: lineNo, Message: fmt.Sprintf("unknown section %s", line)}
			}
			continue
		}

		if table == nil {
			return &ParseError{Source: source, Line: lineNo, Message: "entry outside of a section"}
		}

		num, name, err := parseEntry(line)
		if err != nil {
			return &ParseError{Source: source, Line: lineNo, Message: err.Error()}
		}
		table.Set(num, name)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", source, err)
	}
	if lineNo == 0 {
		return &ParseError{Source: source, Line: 1, Message: fmt.Sprintf("missing %s header", Header)}
	}
	return nil
}

func parseEntry(line string) (int, string, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, "", fmt.Errorf("expected \"<number> <name>\", got %q", line)
	}
	num, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, "", fmt.Errorf("invalid number %q", fields[0])
	}
	name := fields[1]
	if !identPattern.MatchString(name) {
		return 0, "", fmt.Errorf("invalid name %q", name)
	}
	if insNamePattern.MatchString(name) || reserved[name] {
		return 0, "", fmt.Errorf("name %q is reserved", name)
	}
	return num, name, nil
}
