package ir

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrDuplicateSub is returned when a Program already has a Sub with the same name.
	ErrDuplicateSub = errors.New("duplicate subroutine")

	// ErrDuplicateLabel is returned when a Sub already defines a label with the same name.
	ErrDuplicateLabel = errors.New("duplicate label")

	// ErrDuplicateVar is returned when a Sub already declares a local with the same name.
	ErrDuplicateVar = errors.New("duplicate variable")
)

// Label maps a label name to a byte offset within its Sub.
type Label struct {
	Name   string
	Offset uint32
}

// Sub is a named, ordered sequence of instructions.
// Instruction order is control-flow order.
type Sub struct {
	Name   string
	Instrs []Instr
	Labels []Label  // unique names, declaration order
	Vars   []string // unique names, declaration order

	freed bool
}

// NewSub creates an empty Sub.
func NewSub(name string) *Sub {
	return &Sub{Name: name}
}

// Append adds in to the end of the instruction sequence.
func (s *Sub) Append(in Instr) {
	s.Instrs = append(s.Instrs, in)
}

// AddVar declares a local variable. Names are unique within the Sub.
func (s *Sub) AddVar(name string) error {
	if slices.Contains(s.Vars, name) {
		return fmt.Errorf("%w %q in sub %s", ErrDuplicateVar, name, s.Name)
	}
	s.Vars = append(s.Vars, name)
	return nil
}

// VarIndex returns the declaration index of the local called name.
func (s *Sub) VarIndex(name string) (int, bool) {
	i := slices.Index(s.Vars, name)
	return i, i >= 0
}

// AddLabel records a label. Names are unique within the Sub.
func (s *Sub) AddLabel(name string, offset uint32) error {
	if _, ok := s.LabelOffset(name); ok {
		return fmt.Errorf("%w %q in sub %s", ErrDuplicateLabel, name, s.Name)
	}
	s.Labels = append(s.Labels, Label{Name: name, Offset: offset})
	return nil
}

// LabelOffset returns the offset of the label called name.
func (s *Sub) LabelOffset(name string) (uint32, bool) {
	for _, l := range s.Labels {
		if l.Name == name {
			return l.Offset, true
		}
	}
	return 0, false
}

// LabelsAt returns the names of every label at offset, in declaration order.
func (s *Sub) LabelsAt(offset uint32) []string {
	var names []string
	for _, l := range s.Labels {
		if l.Offset == offset {
			names = append(names, l.Name)
		}
	}
	return names
}

// Ops returns the ordinary instructions of the Sub in order.
func (s *Sub) Ops() []*Op {
	var ops []*Op
	for _, in := range s.Instrs {
		if op, ok := in.(*Op); ok {
			ops = append(ops, op)
		}
	}
	return ops
}

// Free releases every owned instruction, label and variable name.
// Repeated calls are no-ops.
func (s *Sub) Free() {
	if s == nil || s.freed {
		return
	}
	for _, in := range s.Instrs {
		FreeInstr(in)
	}
	s.Instrs = nil
	s.Labels = nil
	s.Vars = nil
	s.freed = true
}

// Freed reports whether Free has been called.
func (s *Sub) Freed() bool {
	return s.freed
}

// LocalData is an opaque data block owned by a Program.
// Its meaning is defined by the backend that produced it.
type LocalData struct {
	Data []byte
}

// Program is the root of the IR.
type Program struct {
	Subs []*Sub

	// AnimNames and EcliNames carry auxiliary file references some formats
	// store alongside the code. They exist only for round-tripping.
	AnimNames []string
	EcliNames []string

	LocalData []*LocalData

	freed bool
}

// NewProgram creates an empty Program.
func NewProgram() *Program {
	return &Program{}
}

// AddSub appends s. Sub names are unique within a Program.
func (p *Program) AddSub(s *Sub) error {
	if p.Sub(s.Name) != nil {
		return fmt.Errorf("%w %q", ErrDuplicateSub, s.Name)
	}
	p.Subs = append(p.Subs, s)
	return nil
}

// Sub returns the Sub called name, or nil.
func (p *Program) Sub(name string) *Sub {
	for _, s := range p.Subs {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// SubIndex returns the position of the Sub called name.
func (p *Program) SubIndex(name string) (int, bool) {
	for i, s := range p.Subs {
		if s.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Free releases the Program and everything it owns.
// Safe on a nil or partially populated Program; repeated calls are no-ops.
func (p *Program) Free() {
	if p == nil || p.freed {
		return
	}
	for _, s := range p.Subs {
		s.Free()
	}
	p.Subs = nil
	p.AnimNames = nil
	p.EcliNames = nil
	for _, d := range p.LocalData {
		if d != nil {
			d.Data = nil
		}
	}
	p.LocalData = nil
	p.freed = true
}

// Freed reports whether Free has been called.
func (p *Program) Freed() bool {
	return p.freed
}
