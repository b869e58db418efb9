// Package backend defines the capability every ECL format family implements
// and the helpers the families share: binary reading and writing, the
// Shift-JIS string codec, signature-driven parameter coding and the label
// transforms used when decompiling.
package backend

import (
	"io"

	"go.uber.org/zap"

	"github.com/roach88/thecl/internal/eclmap"
	"github.com/roach88/thecl/internal/ir"
)

// Module binds a format family to the five pipeline operations.
//
// Parse and Open create a Program; the caller owns it and must Free it.
// Transform mutates the Program in place. Compile and Dump only read it.
type Module interface {
	// Name returns the family name (e.g., "th06", "th10").
	Name() string

	// Parse reads the text form. Fails on malformed source.
	Parse(r io.Reader, version uint, env *Env) (*ir.Program, error)

	// Compile writes the binary form of a Program produced by Parse.
	Compile(p *ir.Program, w io.Writer, env *Env) error

	// Open reads the binary form. Fails when the bytes do not match the
	// layout of the declared version.
	Open(r io.Reader, version uint, env *Env) (*ir.Program, error)

	// Transform prepares a Program produced by Open for Dump. With env.Raw
	// set it applies only format-preserving normalization.
	Transform(p *ir.Program, env *Env)

	// Dump writes the text form.
	Dump(p *ir.Program, w io.Writer, env *Env) error
}

// Env is the per-invocation context handed to every pipeline stage.
// It is built once before the pipeline starts and never mutated by stages.
type Env struct {
	// Raw selects minimal transformation when decompiling.
	Raw bool

	// Maps is the name-mapping service. May be nil.
	Maps *eclmap.Set

	// Logger receives stage diagnostics. May be nil.
	Logger *zap.Logger
}

// Log returns the environment logger, or a no-op logger.
func (e *Env) Log() *zap.Logger {
	if e == nil || e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// NameMaps returns the name-mapping service, which may be nil.
func (e *Env) NameMaps() *eclmap.Set {
	if e == nil {
		return nil
	}
	return e.Maps
}

// RawOutput reports whether raw output was requested.
func (e *Env) RawOutput() bool {
	return e != nil && e.Raw
}
