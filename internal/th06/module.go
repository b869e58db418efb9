// Package th06 implements the backend for the first ECL layout family.
//
// Files start with a table of sub and data block offsets. Subs are unnamed
// and end with a terminator instruction; strings are NUL-terminated and
// padded to four bytes.
package th06

import (
	"fmt"
	"io"

	"github.com/roach88/thecl/internal/asm"
	"github.com/roach88/thecl/internal/backend"
	"github.com/roach88/thecl/internal/ir"
)

// Versions lists the format versions served by this family.
var Versions = []uint{6, 7, 8, 9, 95}

const (
	// Name is the family name.
	Name = "th06"

	instrHeaderSize = 12
	terminatorTime  = 0xffffffff
	terminatorID    = 0xffff
	terminatorMask  = 0xffff

	// callOpcode invokes the sub whose index is its first parameter.
	callOpcode = 35
)

var signatures = backend.Signatures{
	0:  "",    // nop
	1:  "S",   // delete
	2:  "ot",  // jump
	3:  "otS", // loop
	4:  "SS",  // set
	5:  "Sf",  // setf
	6:  "SS",  // random
	20: "SSS", // add
	21: "SSS", // sub
	23: "t",   // wait
	24: "SS",  // cmp
	25: "ff",  // cmpf
	26: "o",   // jl
	27: "o",   // jle
	28: "o",   // je
	29: "o",   // jg
	30: "o",   // jge
	31: "o",   // jne
	35: "SSf", // call
	36: "",    // return
	45: "ff",  // move
	69: "z",   // text
	70: "m",   // blob
}

var dialect = &asm.Dialect{
	Family:     Name,
	Data:       true,
	Rank:       asm.RankFormat{Letters: "ENHL", Fixed: 0xfff0, Width: 16},
	HeaderSize: instrHeaderSize,
	MaxOpcode:  terminatorID - 1,
	Codec:      backend.Codec{Sigs: signatures, Strings: backend.StringPadded},
}

// Module is the th06 family backend.
type Module struct{}

var _ backend.Module = (*Module)(nil)

// New returns the th06 family backend.
func New() *Module {
	return &Module{}
}

// Name returns the family name.
func (*Module) Name() string { return Name }

// Parse reads the text form.
func (*Module) Parse(r io.Reader, version uint, env *backend.Env) (*ir.Program, error) {
	return asm.Parse(r, dialect, env.NameMaps())
}

// Dump writes the text form.
func (*Module) Dump(p *ir.Program, w io.Writer, env *backend.Env) error {
	return asm.Print(w, p, dialect, env.NameMaps())
}

// Transform resolves jump offsets into labels and names call targets.
// In raw mode only the label table is normalized.
func (*Module) Transform(p *ir.Program, env *backend.Env) {
	for _, sub := range p.Subs {
		if env.RawOutput() {
			backend.NormalizeLabels(sub)
			continue
		}
		backend.ResolveJumps(sub, signatures)
		for _, op := range sub.Ops() {
			if op.ID != callOpcode || op.Raw != nil || len(op.Params) == 0 {
				continue
			}
			target := op.Params[0]
			if target.Var || target.Kind() != ir.KindInt {
				continue
			}
			if i := target.Int(); i >= 0 && i < int64(len(p.Subs)) {
				op.Ref = p.Subs[i].Name
			}
		}
	}
}

func subName(i int) string {
	return fmt.Sprintf("Sub%d", i)
}
