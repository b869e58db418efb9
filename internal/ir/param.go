package ir

import "fmt"

// Param is one operand of an *Op. It owns exactly one Value whose kind is
// fixed when the Param is created.
type Param struct {
	kind  Kind
	value Value
	freed bool

	// IsExpression marks a value produced by folding a constant expression
	// rather than written as a literal. Informational only.
	IsExpression bool

	// Var marks a variable reference ($name or %name in the text form).
	// Backends record it in the instruction's parameter mask.
	Var bool

	// Label marks a reference to a label in the enclosing Sub. The value is
	// the label name (KindString); backends encode the resolved offset.
	Label bool
}

// NewParam creates a Param whose value is the zero Value of kind.
// Panics if kind is not a declared Kind.
func NewParam(kind Kind) *Param {
	return &Param{kind: kind, value: Zero(kind)}
}

// NewValueParam creates a Param holding v.
func NewValueParam(v Value) *Param {
	p := NewParam(v.Kind())
	p.value = v
	return p
}

// NewLabelRef creates a Param referring to the label called name.
func NewLabelRef(name string) *Param {
	p := NewValueParam(String(name))
	p.Label = true
	return p
}

// Kind returns the kind fixed at creation. It stays valid after Free.
func (p *Param) Kind() Kind {
	return p.kind
}

// Value returns the current value. Returns nil after Free.
func (p *Param) Value() Value {
	return p.value
}

// Set replaces the value. Panics if v's kind differs from the Param's kind
// or if the Param has been freed: both are programming errors.
func (p *Param) Set(v Value) {
	if p.freed {
		panic("ir: Set on freed Param")
	}
	if v == nil || v.Kind() != p.kind {
		panic(fmt.Sprintf("ir: cannot store %v in %s param", kindOf(v), p.kind))
	}
	p.value = v
}

// Int returns the integer payload. Panics if the Param is not KindInt.
func (p *Param) Int() int64 {
	return int64(p.mustValue(KindInt).(Int))
}

// Float returns the float payload. Panics if the Param is not KindFloat.
func (p *Param) Float() float32 {
	return float32(p.mustValue(KindFloat).(Float))
}

// Str returns the text payload. Panics if the Param is not KindString.
func (p *Param) Str() string {
	return string(p.mustValue(KindString).(String))
}

// Bytes returns the raw payload. Panics if the Param is not KindBytes.
func (p *Param) Bytes() []byte {
	return []byte(p.mustValue(KindBytes).(Bytes))
}

// Free releases the owned value. Repeated calls are no-ops.
func (p *Param) Free() {
	if p == nil || p.freed {
		return
	}
	p.value = nil
	p.freed = true
}

// Freed reports whether Free has been called.
func (p *Param) Freed() bool {
	return p.freed
}

func (p *Param) mustValue(k Kind) Value {
	if p.kind != k {
		panic(fmt.Sprintf("ir: %s accessor on %s param", k, p.kind))
	}
	if p.freed {
		panic("ir: access to freed Param")
	}
	return p.value
}

func kindOf(v Value) string {
	if v == nil {
		return "nil"
	}
	return v.Kind().String()
}
