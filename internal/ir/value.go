package ir

import "fmt"

// Kind identifies the payload type carried by a Value.
type Kind int

const (
	KindInt Kind = iota + 1
	KindFloat
	KindString
	KindBytes
)

// String returns the lower-case kind name used in diagnostics and IR JSON.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= KindInt && k <= KindBytes
}

// Value is a sealed interface over the scalar payloads an instruction
// parameter can hold. Only Int, Float, String and Bytes implement it.
type Value interface {
	Kind() Kind
	value() // Sealed
}

// Int is a signed or unsigned integer operand.
// Backends encode it in 32 bits; the wider type keeps unsigned values exact.
type Int int64

func (Int) Kind() Kind { return KindInt }
func (Int) value()     {}

// Float is a single-precision floating point operand.
type Float float32

func (Float) Kind() Kind { return KindFloat }
func (Float) value()     {}

// String is a text operand, held as UTF-8.
type String string

func (String) Kind() Kind { return KindString }
func (String) value()     {}

// Bytes is a raw byte array operand.
type Bytes []byte

func (Bytes) Kind() Kind { return KindBytes }
func (Bytes) value()     {}

// Zero returns the zero Value of kind k.
// Panics if k is not a declared kind.
func Zero(k Kind) Value {
	switch k {
	case KindInt:
		return Int(0)
	case KindFloat:
		return Float(0)
	case KindString:
		return String("")
	case KindBytes:
		return Bytes{}
	default:
		panic(fmt.Sprintf("ir: invalid value kind %d", int(k)))
	}
}
