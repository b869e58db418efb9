// Package config loads the optional CUE configuration file.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// DefaultFile is read from the working directory when no --config is given.
const DefaultFile = "thecl.cue"

//go:embed schema.cue
var schemaSource []byte

// Config holds defaults for command-line flags. Flags given explicitly
// always win.
type Config struct {
	Version uint     `json:"version,omitempty"`
	Maps    []string `json:"maps,omitempty"`
	Raw     bool     `json:"raw,omitempty"`
	Format  string   `json:"format,omitempty"`
	Verbose bool     `json:"verbose,omitempty"`
	History string   `json:"history,omitempty"`

	// Path is the file the config was read from.
	Path string `json:"-"`
}

// Load reads and validates the config file at path. Relative map and
// history paths are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		var pe *fs.PathError
		if errors.As(err, &pe) {
			err = pe.Err
		}
		return nil, fmt.Errorf("couldn't open %s for reading: %w", path, err)
	}
	cfg, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// LoadDefault reads DefaultFile from dir if it exists. A missing file is
// not an error and yields nil.
func LoadDefault(dir string) (*Config, error) {
	path := filepath.Join(dir, DefaultFile)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return Load(path)
}

// Parse validates CUE source against the config schema. filename names
// the source in errors.
func Parse(src []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("config schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("%s: %s", filename, details(err))
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("%s: %s", filename, details(err))
	}

	cfg := &Config{Path: filename}
	if err := unified.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

func details(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	msg := errs[0].Error()
	if pos := errs[0].Position(); pos.IsValid() {
		msg = fmt.Sprintf("%d:%d: %s", pos.Line(), pos.Column(), msg)
	}
	return msg
}

func (c *Config) resolve(dir string) {
	for i, m := range c.Maps {
		if !filepath.IsAbs(m) {
			c.Maps[i] = filepath.Join(dir, m)
		}
	}
	if c.History != "" && !filepath.IsAbs(c.History) {
		c.History = filepath.Join(dir, c.History)
	}
}
