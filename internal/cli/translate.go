package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/thecl/internal/driver"
	"github.com/roach88/thecl/internal/eclmap"
	"github.com/roach88/thecl/internal/ir"
	"github.com/roach88/thecl/internal/store"
)

const (
	stdinName  = "(stdin)"
	stdoutName = "(stdout)"
)

// TranslateOptions holds flags for the translator itself.
type TranslateOptions struct {
	*RootOptions
	Compile     modeFlag // -c VERSION
	Decompile   modeFlag // -d VERSION
	Maps        []string
	Raw         bool
	ShowVersion bool
	EmitIR      bool

	// IDs generates history run ids. Defaults to UUIDv7.
	IDs store.IDGenerator
}

// modeFlag is a VERSION flag that counts how often it was given, so a
// repeated -c or -d is a mode conflict rather than an override.
type modeFlag struct {
	value string
	count int
}

func (f *modeFlag) String() string { return f.value }

func (f *modeFlag) Set(s string) error {
	f.value = s
	f.count++
	return nil
}

func (f *modeFlag) Type() string { return "VERSION" }

// modes returns how many mode flags were given in total.
func (o *TranslateOptions) modes() int {
	return o.Compile.count + o.Decompile.count
}

// parseVersion reads a VERSION argument. Anything that is not a decimal
// number counts as no version at all.
func parseVersion(s string) uint {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}

// request builds the driver request from flags and config defaults.
func (o *TranslateOptions) request(cmd *cobra.Command) driver.Request {
	flags := cmd.Flags()
	req := driver.Request{
		Compile:   o.Compile.count > 0,
		Decompile: o.Decompile.count > 0,
		Raw:       o.Raw,
		EmitIR:    o.EmitIR,
	}
	switch {
	case req.Compile && !req.Decompile:
		req.Version = parseVersion(o.Compile.value)
	case req.Decompile && !req.Compile:
		req.Version = parseVersion(o.Decompile.value)
	}
	if cfg := o.Cfg; cfg != nil {
		if req.Version == 0 {
			req.Version = cfg.Version
		}
		if req.Decompile && !req.Compile && !flags.Changed("raw") && cfg.Raw {
			req.Raw = true
		}
	}
	return req
}

func runTranslate(opts *TranslateOptions, cmd *cobra.Command, args []string) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.ShowVersion {
		fmt.Fprintf(cmd.OutOrStdout(), "thecl %s\n", Version)
		return nil
	}

	req := opts.request(cmd)
	m, err := driver.Check(req)
	if err != nil {
		return usageError(cmd, out, err, req.Compile && req.Decompile)
	}
	if m == nil {
		return usageError(cmd, out, driver.NewNoModeError(), true)
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	defer func() { _ = logger.Sync() }()

	maps, err := loadMaps(opts)
	if err != nil {
		return WrapExitError(ExitFailure, "", err)
	}

	req.Input = stdinName
	output := stdoutName
	if len(args) > 0 {
		req.Input = args[0]
	}
	if len(args) > 1 {
		output = args[1]
	}

	rec := &runRecord{
		run: store.Run{
			Mode:    req.Mode().String(),
			Version: req.Version,
			Family:  m.Name(),
			Input:   req.Input,
			Output:  output,
		},
	}

	res, err := translate(cmd, opts.RootOptions, req, args, maps, logger, rec)
	if err != nil {
		rec.fail(err)
	}
	if herr := recordRun(cmd.Context(), opts, rec, logger); herr != nil && err == nil {
		err = herr
	}
	if err != nil {
		return WrapExitError(ExitFailure, "", err)
	}

	out.VerboseLog("%s %s -> %s (%s, %d subs)", res.Mode, req.Input, output, res.Family, res.Subs)
	return nil
}

func translate(cmd *cobra.Command, opts *RootOptions, req driver.Request, args []string, maps *eclmap.Set, logger *zap.Logger, rec *runRecord) (*driver.Result, error) {
	src, err := readInput(cmd.InOrStdin(), opts, args)
	if err != nil {
		return nil, err
	}
	rec.run.InputDigest = ir.BlobDigest(src)

	res, err := driver.New(maps, logger).Run(req, bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	rec.run.ProgramDigest = res.ProgramDigest
	rec.run.OutputDigest = ir.BlobDigest(res.Output)

	// The output file is only created once the whole output exists.
	if len(args) > 1 {
		if err := os.WriteFile(opts.path(args[1]), res.Output, 0o644); err != nil {
			return nil, driver.NewResourceError(fmt.Sprintf("couldn't open %s for writing", args[1]), pathCause(err))
		}
	} else if _, err := cmd.OutOrStdout().Write(res.Output); err != nil {
		return nil, driver.NewResourceError("couldn't write output", err)
	}
	return res, nil
}

// checkModes rejects more than one mode flag. It runs before the config
// file is read so a conflict never touches the filesystem.
func checkModes(opts *TranslateOptions, cmd *cobra.Command) error {
	if opts.modes() <= 1 {
		return nil
	}
	format := opts.Format
	if !isValidFormat(format) {
		format = "text"
	}
	out := &OutputFormatter{Format: format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
	return usageError(cmd, out, driver.NewModeConflictError(), true)
}

// usageError reports err and, when asked, prints the usage text after it.
// A missing mode prints only the usage.
func usageError(cmd *cobra.Command, out *OutputFormatter, err error, usage bool) error {
	noMode := driver.CodeOf(err) == driver.ErrCodeNoMode
	if !noMode || out.Format == "json" {
		out.Report(err)
	}
	if usage && out.Format != "json" {
		printUsage(cmd.OutOrStdout())
	}
	return &ExitError{Code: ExitFailure, Err: err, Reported: true}
}

func loadMaps(opts *TranslateOptions) (*eclmap.Set, error) {
	var paths []string
	if opts.Cfg != nil {
		paths = append(paths, opts.Cfg.Maps...)
	}
	for _, m := range opts.Maps {
		paths = append(paths, opts.path(m))
	}

	maps := eclmap.NewSet()
	for _, p := range paths {
		if err := maps.LoadFile(p); err != nil {
			return nil, driver.NewConfigError("couldn't load map file", err)
		}
	}
	return maps, nil
}

func readInput(stdin io.Reader, opts *RootOptions, args []string) ([]byte, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, driver.NewResourceError("couldn't read "+stdinName, err)
		}
		return data, nil
	}
	data, err := os.ReadFile(opts.path(args[0]))
	if err != nil {
		return nil, driver.NewResourceError(fmt.Sprintf("couldn't open %s for reading", args[0]), pathCause(err))
	}
	return data, nil
}

// pathCause strips the operation and path os adds, leaving the message
// the caller already frames with the path.
func pathCause(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}
