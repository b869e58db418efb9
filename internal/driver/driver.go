// Package driver selects a backend module for a format version and runs
// the compile and decompile pipelines.
//
// Requests are validated before any file is touched. A pipeline renders its
// whole output into memory and only returns it once every stage has
// succeeded, so callers never see partial output.
package driver

import (
	"bytes"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/roach88/thecl/internal/backend"
	"github.com/roach88/thecl/internal/eclmap"
	"github.com/roach88/thecl/internal/ir"
)

// Mode is the pipeline an invocation runs.
type Mode int

const (
	ModeNone Mode = iota
	ModeCompile
	ModeDecompile
)

func (m Mode) String() string {
	switch m {
	case ModeCompile:
		return "compile"
	case ModeDecompile:
		return "decompile"
	default:
		return "none"
	}
}

// Request describes one invocation.
type Request struct {
	Compile   bool
	Decompile bool
	Version   uint

	// Raw requests minimal transformation when decompiling.
	Raw bool

	// EmitIR replaces the text dump with canonical IR JSON.
	EmitIR bool

	// Input names the input in diagnostics.
	Input string
}

// Mode returns the requested pipeline. Callers must Check the request
// first; a conflicting request reports ModeNone.
func (r Request) Mode() Mode {
	switch {
	case r.Compile && !r.Decompile:
		return ModeCompile
	case r.Decompile && !r.Compile:
		return ModeDecompile
	default:
		return ModeNone
	}
}

// Check validates req and resolves its backend module. A request with no
// mode is valid and yields a nil module.
func Check(req Request) (backend.Module, error) {
	if req.Compile && req.Decompile {
		return nil, NewModeConflictError()
	}
	if req.Mode() == ModeNone {
		return nil, nil
	}
	m, err := Resolve(req.Version)
	if err != nil {
		return nil, err
	}
	if req.Compile && req.Raw {
		return nil, NewRawWhileCompilingError()
	}
	if req.Compile && req.EmitIR {
		return nil, NewIRWhileCompilingError()
	}
	return m, nil
}

// Result is the outcome of a successful pipeline.
type Result struct {
	Family string
	Mode   Mode

	// Output is the complete rendered output.
	Output []byte

	// Subs is the number of subroutines in the Program.
	Subs int

	// ProgramDigest identifies the IR the pipeline worked on.
	ProgramDigest string
}

// Driver runs pipelines with a fixed name-mapping service.
type Driver struct {
	maps   *eclmap.Set
	logger *zap.Logger
}

// New creates a Driver. maps and logger may be nil.
func New(maps *eclmap.Set, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{maps: maps, logger: logger}
}

// Run validates req and runs its pipeline over in.
func (d *Driver) Run(req Request, in io.Reader) (*Result, error) {
	m, err := Check(req)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, NewNoModeError()
	}
	if req.Input == "" {
		req.Input = "(stdin)"
	}

	env := &backend.Env{Raw: req.Raw, Maps: d.maps, Logger: d.logger}
	log := d.logger.With(zap.String("family", m.Name()), zap.Uint("version", req.Version))

	if req.Mode() == ModeCompile {
		return d.compile(m, req, in, env, log)
	}
	return d.decompile(m, req, in, env, log)
}

func (d *Driver) compile(m backend.Module, req Request, in io.Reader, env *backend.Env, log *zap.Logger) (*Result, error) {
	log.Debug("pipeline stage", zap.String("stage", "parse"))
	p, err := m.Parse(in, req.Version, env)
	if err != nil {
		return nil, NewFormatError(req.Input, "parse", err)
	}
	defer p.Free()

	res, err := d.result(m, ModeCompile, p)
	if err != nil {
		return nil, err
	}

	log.Debug("pipeline stage", zap.String("stage", "compile"), zap.Int("subs", res.Subs))
	var out bytes.Buffer
	if err := m.Compile(p, &out, env); err != nil {
		return nil, NewFormatError(req.Input, "compile", err)
	}
	res.Output = out.Bytes()
	return res, nil
}

func (d *Driver) decompile(m backend.Module, req Request, in io.Reader, env *backend.Env, log *zap.Logger) (*Result, error) {
	log.Debug("pipeline stage", zap.String("stage", "open"))
	p, err := m.Open(in, req.Version, env)
	if err != nil {
		return nil, NewFormatError(req.Input, "open", err)
	}
	defer p.Free()

	log.Debug("pipeline stage", zap.String("stage", "transform"), zap.Bool("raw", req.Raw))
	m.Transform(p, env)

	res, err := d.result(m, ModeDecompile, p)
	if err != nil {
		return nil, err
	}

	log.Debug("pipeline stage", zap.String("stage", "dump"), zap.Int("subs", res.Subs), zap.Bool("ir", req.EmitIR))
	var out bytes.Buffer
	if req.EmitIR {
		doc, err := ir.MarshalCanonical(ir.Document(p))
		if err != nil {
			return nil, NewFormatError(req.Input, "dump", err)
		}
		out.Write(doc)
		out.WriteByte('\n')
	} else if err := m.Dump(p, &out, env); err != nil {
		return nil, NewFormatError(req.Input, "dump", err)
	}
	res.Output = out.Bytes()
	return res, nil
}

func (d *Driver) result(m backend.Module, mode Mode, p *ir.Program) (*Result, error) {
	digest, err := ir.Digest(p)
	if err != nil {
		return nil, fmt.Errorf("digest program: %w", err)
	}
	return &Result{Family: m.Name(), Mode: mode, Subs: len(p.Subs), ProgramDigest: digest}, nil
}
