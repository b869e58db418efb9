package asm

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/roach88/thecl/internal/backend"
	"github.com/roach88/thecl/internal/ir"
)

// RankFormat describes how a family spells difficulty masks.
type RankFormat struct {
	// Letters names the low bits, bit 0 first.
	Letters string

	// Fixed holds the bits set in every letter-spelled mask.
	Fixed uint32

	// Width is the size of the stored mask in bits.
	Width int
}

func (f RankFormat) letterBits() uint32 {
	return 1<<uint(len(f.Letters)) - 1
}

// Full returns the mask that enables every difficulty.
func (f RankFormat) Full() uint32 {
	return f.Fixed | f.letterBits()
}

// Max returns the largest storable mask.
func (f RankFormat) Max() uint32 {
	return uint32(1<<uint(f.Width) - 1)
}

// Format spells r: "*" for the full mask, letters when only the fixed bits
// are set above the letter bits, hex otherwise.
func (f RankFormat) Format(r uint32) string {
	if r == f.Full() {
		return "*"
	}
	low := r & f.letterBits()
	if r&^f.letterBits() != f.Fixed || low == 0 {
		return fmt.Sprintf("0x%x", r)
	}
	var sb strings.Builder
	for low != 0 {
		i := bits.TrailingZeros32(low)
		sb.WriteByte(f.Letters[i])
		low &^= 1 << uint(i)
	}
	return sb.String()
}

// Parse reads a mask written by Format.
func (f RankFormat) Parse(s string) (uint32, error) {
	switch {
	case s == "*":
		return f.Full(), nil
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		v, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil || uint32(v) > f.Max() {
			return 0, fmt.Errorf("rank %s out of range", s)
		}
		return uint32(v), nil
	case s == "":
		return 0, fmt.Errorf("empty rank")
	}
	var mask uint32
	for _, c := range s {
		i := strings.IndexRune(f.Letters, c)
		if i < 0 {
			return 0, fmt.Errorf("unknown rank letter %q", c)
		}
		if mask&(1<<uint(i)) != 0 {
			return 0, fmt.Errorf("rank letter %q repeated", c)
		}
		mask |= 1 << uint(i)
	}
	return f.Fixed | mask, nil
}

// Dialect is the family-specific part of the text form.
type Dialect struct {
	// Family names the backend family in diagnostics.
	Family string

	// Includes allows the anim and ecli blocks.
	Includes bool

	// Data allows data blocks.
	Data bool

	Rank RankFormat

	// HeaderSize is the encoded size of an instruction header; offsets are
	// computed as HeaderSize plus the payload size.
	HeaderSize uint32

	// MaxOpcode is the largest opcode number the family can store.
	MaxOpcode int

	// Codec types parameters and sizes payloads.
	Codec backend.Codec
}

// Size returns the encoded size of op.
func (d *Dialect) Size(op *ir.Op) (uint32, error) {
	n, err := d.Codec.PayloadSize(op)
	if err != nil {
		return 0, err
	}
	return d.HeaderSize + n, nil
}
