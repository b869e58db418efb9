// Package th10 implements the backend for the SCPT layout family.
//
// Files carry a fixed header, lists of referenced anim and ecli files, and
// a table of named subs. Every sub starts with an ECLH header; strings are
// size-prefixed.
package th10

import (
	"io"

	"github.com/roach88/thecl/internal/asm"
	"github.com/roach88/thecl/internal/backend"
	"github.com/roach88/thecl/internal/ir"
)

// Versions lists the format versions served by this family.
var Versions = []uint{10, 103, 11, 12, 125, 128, 13, 14, 143, 15, 16}

const (
	// Name is the family name.
	Name = "th10"

	magicFile = "SCPT"
	magicAnim = "ANIM"
	magicEcli = "ECLI"
	magicSub  = "ECLH"

	fileHeaderSize  = 36
	subHeaderSize   = 16
	instrHeaderSize = 16
	formatRevision  = 1
)

var signatures = backend.Signatures{
	0:   "",       // nop
	1:   "",       // delete
	10:  "",       // return
	11:  "z",      // call
	12:  "ot",     // jump
	13:  "ot",     // jump if zero
	14:  "ot",     // jump if not zero
	15:  "z",      // call async
	21:  "",       // kill async
	23:  "t",      // wait
	40:  "S",      // stack alloc
	42:  "S",      // push int
	43:  "S",      // set int
	44:  "f",      // push float
	45:  "f",      // set float
	50:  "",       // add int
	51:  "",       // add float
	59:  "",       // less than
	78:  "S",      // decrement
	256: "zffSSS", // spawn enemy
	400: "ff",     // move
	502: "SS",     // flags
	601: "m",      // shoot
}

var dialect = &asm.Dialect{
	Family:     Name,
	Includes:   true,
	Rank:       asm.RankFormat{Letters: "ENHL", Fixed: 0xf0, Width: 8},
	HeaderSize: instrHeaderSize,
	MaxOpcode:  0xffff,
	Codec:      backend.Codec{Sigs: signatures, Strings: backend.StringSized},
}

// Module is the th10 family backend.
type Module struct{}

var _ backend.Module = (*Module)(nil)

// New returns the th10 family backend.
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

// Transform resolves jump offsets into labels. In raw mode only the label
// table is normalized. Calls already name their target.
func (*Module) Transform(p *ir.Program, env *backend.Env) {
	for _, sub := range p.Subs {
		if env.RawOutput() {
			backend.NormalizeLabels(sub)
		} else {
			backend.ResolveJumps(sub, signatures)
		}
	}
}
