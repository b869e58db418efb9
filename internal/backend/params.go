package backend

import (
	"bytes"
	"fmt"
	"math"

	"github.com/roach88/thecl/internal/ir"
)

// Signature characters.
const (
	SigInt    = 'S' // 32-bit integer
	SigFloat  = 'f' // 32-bit float
	SigString = 'z' // string, layout depends on the family
	SigOffset = 'o' // relative jump offset in bytes
	SigTime   = 't' // time value
	SigRest   = 'm' // every remaining byte, kept opaque
)

// Signatures maps opcode numbers to parameter signatures.
type Signatures map[int]string

// Lookup returns the signature of id.
func (s Signatures) Lookup(id int) (string, bool) {
	sig, ok := s[id]
	return sig, ok
}

// StringLayout selects how string parameters are stored.
type StringLayout int

const (
	// StringPadded is a NUL-terminated string zero padded to 4 bytes.
	StringPadded StringLayout = iota

	// StringSized is a u32 byte count followed by a StringPadded string.
	StringSized
)

// Codec encodes and decodes instruction payloads against a signature table.
type Codec struct {
	Sigs    Signatures
	Strings StringLayout
}

// DecodeParams fills op's parameters from payload. When the opcode has no
// signature, or the payload does not decode to exactly the same bytes when
// re-encoded, the payload is kept as one Bytes parameter and op.Raw records
// the header fields. count is the declared parameter count, or -1 when the
// family does not store one.
func (c Codec) DecodeParams(op *ir.Op, payload []byte, count int, mask uint32) {
	if params, ok := c.decode(op.ID, payload, count, mask); ok {
		op.Params = params
		return
	}
	op.Params = []*ir.Param{ir.NewValueParam(ir.Bytes(payload))}
	op.Raw = &ir.RawHeader{Count: max(count, 0), Mask: mask}
}

func (c Codec) decode(id int, payload []byte, count int, mask uint32) ([]*ir.Param, bool) {
	sig, ok := c.Sigs.Lookup(id)
	if !ok {
		return nil, false
	}
	if count >= 0 && count != len(sig) {
		return nil, false
	}
	if len(sig) < 32 && mask>>uint(len(sig)) != 0 {
		return nil, false
	}

	r := NewReader(payload)
	params := make([]*ir.Param, 0, len(sig))
	fail := func() ([]*ir.Param, bool) {
		for _, p := range params {
			p.Free()
		}
		return nil, false
	}
	for i, ch := range sig {
		isVar := mask&(1<<uint(i)) != 0
		var p *ir.Param
		switch ch {
		case SigInt, SigOffset, SigTime:
			v, err := r.U32()
			if err != nil {
				return fail()
			}
			p = ir.NewValueParam(ir.Int(int32(v)))
		case SigFloat:
			v, err := r.U32()
			if err != nil {
				return fail()
			}
			f := math.Float32frombits(v)
			if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
				return fail()
			}
			if isVar && !integral(f) {
				return fail()
			}
			p = ir.NewValueParam(ir.Float(f))
		case SigString:
			if isVar {
				return fail()
			}
			s, ok := c.readString(r)
			if !ok {
				return fail()
			}
			p = ir.NewValueParam(ir.String(s))
		case SigRest:
			if isVar {
				return fail()
			}
			rest, _ := r.Bytes(r.Remaining())
			p = ir.NewValueParam(ir.Bytes(rest))
		default:
			panic(fmt.Sprintf("backend: bad signature character %q for opcode %d", ch, id))
		}
		p.Var = isVar
		params = append(params, p)
	}
	if r.Remaining() != 0 {
		return fail()
	}
	return params, true
}

// readString decodes one string parameter and checks that encoding it
// again yields the bytes it was read from.
func (c Codec) readString(r *Reader) (string, bool) {
	switch c.Strings {
	case StringSized:
		size, err := r.U32()
		if err != nil || int(size) > r.Remaining() {
			return "", false
		}
		raw, _ := r.Bytes(int(size))
		n := bytes.IndexByte(raw, 0)
		if n < 0 || int(size) != Align(n+1, 4) || !allZero(raw[n:]) {
			return "", false
		}
		return DecodeString(raw[:n])
	default:
		raw, err := r.CString()
		if err != nil {
			return "", false
		}
		pad, err := r.Bytes(Align(len(raw)+1, 4) - len(raw) - 1)
		if err != nil || !allZero(pad) {
			return "", false
		}
		return DecodeString(raw)
	}
}

// integral reports whether f names a variable number. Negative zero does
// not: it would print as %0 and read back as +0.
func integral(f float32) bool {
	if f == 0 && math.Signbit(float64(f)) {
		return false
	}
	return math.Abs(float64(f)) < 1<<31 && math.Trunc(float64(f)) == float64(f)
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// Mask returns the variable mask stored in op's header.
func Mask(op *ir.Op) uint32 {
	if op.Raw != nil {
		return op.Raw.Mask
	}
	var m uint32
	for i, p := range op.Params {
		if p.Var && i < 32 {
			m |= 1 << uint(i)
		}
	}
	return m
}

// Count returns the parameter count stored in op's header.
func Count(op *ir.Op) int {
	if op.Raw != nil {
		return op.Raw.Count
	}
	return len(op.Params)
}

// PayloadSize returns the number of bytes EncodeParams writes for op.
func (c Codec) PayloadSize(op *ir.Op) (uint32, error) {
	var n uint32
	for i, p := range op.Params {
		switch {
		case p.Label:
			n += 4
		case p.Kind() == ir.KindInt, p.Kind() == ir.KindFloat:
			n += 4
		case p.Kind() == ir.KindString:
			b, err := EncodeString(p.Str())
			if err != nil {
				return 0, fmt.Errorf("param %d: %w", i+1, err)
			}
			n += uint32(Align(len(b)+1, 4))
			if c.Strings == StringSized {
				n += 4
			}
		case p.Kind() == ir.KindBytes:
			n += uint32(len(p.Bytes()))
		}
	}
	return n, nil
}

// EncodeParams writes op's payload. Label references are resolved against
// sub's label table relative to op.Offset.
func (c Codec) EncodeParams(w *Writer, op *ir.Op, sub *ir.Sub) error {
	for i, p := range op.Params {
		switch {
		case p.Label:
			target, ok := sub.LabelOffset(p.Str())
			if !ok {
				return fmt.Errorf("param %d: undefined label %q", i+1, p.Str())
			}
			w.U32(uint32(int32(int64(target) - int64(op.Offset))))
		case p.Kind() == ir.KindInt:
			v := p.Int()
			if v < math.MinInt32 || v > math.MaxUint32 {
				return fmt.Errorf("param %d: %d does not fit in 32 bits", i+1, v)
			}
			w.U32(uint32(v))
		case p.Kind() == ir.KindFloat:
			w.U32(math.Float32bits(p.Float()))
		case p.Kind() == ir.KindString:
			b, err := EncodeString(p.Str())
			if err != nil {
				return fmt.Errorf("param %d: %w", i+1, err)
			}
			if c.Strings == StringSized {
				w.U32(uint32(Align(len(b)+1, 4)))
			}
			w.CString(b)
			for j := len(b) + 1; j%4 != 0; j++ {
				w.U8(0)
			}
		case p.Kind() == ir.KindBytes:
			w.Write(p.Bytes())
		}
	}
	return nil
}
