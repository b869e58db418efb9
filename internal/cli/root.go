package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/thecl/internal/config"
	"github.com/roach88/thecl/internal/driver"
)

// Version is printed by -V. Release builds override it with -ldflags.
var Version = "0.1.0"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string
	History string
	Dir     string // -C: relative paths resolve against it

	// Cfg is the loaded config file, nil if there is none.
	Cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the thecl command. The root command itself runs
// the translator; history and test are subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	topts := &TranslateOptions{RootOptions: opts}

	cmd := &cobra.Command{
		Use:   "thecl [INPUT [OUTPUT]]",
		Short: "Touhou ECL translator",
		Long: `Compile ECL source into the binary format of a game version, or dump a
binary ECL file back into editable source.`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			if c == c.Root() {
				if err := checkModes(topts, c); err != nil {
					return err
				}
			}
			return applyConfig(opts, c)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(topts, cmd, args)
		},
	}
	defaultHelp := cmd.HelpFunc()
	cmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		if c != c.Root() {
			defaultHelp(c, args)
			return
		}
		printUsage(c.OutOrStdout())
	})

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "diagnostic format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (default ./"+config.DefaultFile+" if present)")
	cmd.PersistentFlags().StringVar(&opts.History, "history", "", "SQLite database recording each run")
	cmd.PersistentFlags().StringVarP(&opts.Dir, "chdir", "C", "", "resolve relative paths against DIR")

	f := cmd.Flags()
	f.VarP(&topts.Compile, "create", "c", "create ECL file for VERSION")
	f.VarP(&topts.Decompile, "dump", "d", "dump ECL file of VERSION")
	f.StringArrayVarP(&topts.Maps, "map", "m", nil, "use map file for translating mnemonics")
	f.BoolVarP(&topts.Raw, "raw", "r", false, "output raw ECL opcodes, applying minimal transformations")
	f.BoolVarP(&topts.ShowVersion, "version", "V", false, "display version information and exit")
	f.BoolVar(&topts.EmitIR, "ir", false, "dump the canonical IR as JSON instead of source")

	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// applyConfig loads the config file and fills every flag the user did not
// set explicitly.
func applyConfig(opts *RootOptions, cmd *cobra.Command) error {
	if opts.Dir != "" {
		dir, err := filepath.Abs(opts.Dir)
		if err != nil {
			return WrapExitError(ExitFailure, "invalid -C directory", err)
		}
		opts.Dir = dir
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return WrapExitError(ExitFailure, "", driver.NewConfigError("invalid config", err))
	}
	opts.Cfg = cfg

	if cfg != nil {
		flags := cmd.Flags()
		if !flags.Changed("format") && cfg.Format != "" {
			opts.Format = cfg.Format
		}
		if !flags.Changed("verbose") && cfg.Verbose {
			opts.Verbose = true
		}
		if !flags.Changed("history") && cfg.History != "" {
			opts.History = cfg.History
		}
	}

	// Validate format flag
	if !isValidFormat(opts.Format) {
		return NewExitError(ExitFailure, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
	}
	return nil
}

func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.Config != "" {
		return config.Load(o.path(o.Config))
	}
	dir := o.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = wd
	}
	return config.LoadDefault(dir)
}

// path resolves p against the -C directory.
func (o *RootOptions) path(p string) string {
	if o.Dir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.Dir, p)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
