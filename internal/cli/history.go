package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/thecl/internal/driver"
	"github.com/roach88/thecl/internal/store"
)

// runRecord collects what a translation run learned about itself.
type runRecord struct {
	run store.Run
	err error
}

func (r *runRecord) fail(err error) {
	r.err = err
}

// recordRun appends rec to the history database when one is configured.
func recordRun(ctx context.Context, opts *TranslateOptions, rec *runRecord, logger *zap.Logger) error {
	if opts.History == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ids := opts.IDs
	if ids == nil {
		ids = store.UUIDv7Generator{}
	}
	run := rec.run
	run.ID = ids.Generate()
	run.Status = store.StatusOK
	if rec.err != nil {
		run.Status = store.StatusError
		run.ErrorCode = string(driver.CodeOf(rec.err))
		run.Message = rec.err.Error()
	}

	st, err := store.Open(opts.path(opts.History))
	if err != nil {
		return driver.NewResourceError(fmt.Sprintf("couldn't open history %s", opts.History), err)
	}
	defer st.Close()

	seq, err := st.WriteRun(ctx, run)
	if err != nil {
		return driver.NewResourceError(fmt.Sprintf("couldn't record run in %s", opts.History), err)
	}
	logger.Debug("run recorded", zap.String("id", run.ID), zap.Int64("seq", seq), zap.String("status", run.Status))
	return nil
}

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
	Input string // optional - runs over the same input only
}

// HistoryEntry is the JSON form of one recorded run.
type HistoryEntry struct {
	Seq           int64  `json:"seq"`
	ID            string `json:"id"`
	Mode          string `json:"mode"`
	Version       uint   `json:"version"`
	Family        string `json:"family,omitempty"`
	Input         string `json:"input"`
	Output        string `json:"output"`
	InputDigest   string `json:"input_digest,omitempty"`
	OutputDigest  string `json:"output_digest,omitempty"`
	ProgramDigest string `json:"program_digest,omitempty"`
	Status        string `json:"status"`
	ErrorCode     string `json:"error_code,omitempty"`
	Message       string `json:"message,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List the runs recorded in a history database, oldest first.

Runs are recorded when thecl is invoked with --history FILE (or a config
file naming one).

Examples:
  thecl history --history ./thecl.db
  thecl history --history ./thecl.db --limit 5
  thecl history --history ./thecl.db --input stage1.ecl --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "show at most N runs (0 for all)")
	cmd.Flags().StringVar(&opts.Input, "input", "", "only runs whose input matches this run's input digest")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.History == "" {
		return NewExitError(ExitFailure, "no history database given (use --history)")
	}

	st, err := store.Open(opts.path(opts.History))
	if err != nil {
		return WrapExitError(ExitFailure, "", driver.NewResourceError(fmt.Sprintf("couldn't open history %s", opts.History), err))
	}
	defer st.Close()

	runs, err := listRuns(ctx, st, opts)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list runs", err)
	}

	if opts.Format == "json" {
		entries := make([]HistoryEntry, 0, len(runs))
		for _, r := range runs {
			entries = append(entries, historyEntry(r))
		}
		out := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		return out.Success(entries)
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tMODE\tVERSION\tINPUT\tOUTPUT\tSTATUS")
	for _, r := range runs {
		status := r.Status
		if r.ErrorCode != "" {
			status += " (" + r.ErrorCode + ")"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n", r.Seq, r.Mode, r.Version, r.Input, r.Output, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if opts.Verbose {
		for _, r := range runs {
			if r.Message != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d: %s\n", r.Seq, r.Message)
			}
		}
	}
	return nil
}

// listRuns returns the runs to show. With --input it returns the runs over
// the same content as the most recent run of that input.
func listRuns(ctx context.Context, st *store.Store, opts *HistoryOptions) ([]store.Run, error) {
	if opts.Input == "" {
		return st.ListRuns(ctx, opts.Limit)
	}
	all, err := st.ListRuns(ctx, 0)
	if err != nil {
		return nil, err
	}
	runs := filterByInput(all, opts.Input)
	if len(runs) == 0 {
		return []store.Run{}, nil
	}
	if digest := runs[len(runs)-1].InputDigest; digest != "" {
		if runs, err = st.FindByInputDigest(ctx, digest); err != nil {
			return nil, err
		}
	}
	if opts.Limit > 0 && len(runs) > opts.Limit {
		runs = runs[len(runs)-opts.Limit:]
	}
	return runs, nil
}

// filterByInput keeps the listed runs whose input is name.
func filterByInput(runs []store.Run, name string) []store.Run {
	var out []store.Run
	for _, r := range runs {
		if r.Input == name {
			out = append(out, r)
		}
	}
	return out
}

func historyEntry(r store.Run) HistoryEntry {
	return HistoryEntry{
		Seq:           r.Seq,
		ID:            r.ID,
		Mode:          r.Mode,
		Version:       r.Version,
		Family:        r.Family,
		Input:         r.Input,
		Output:        r.Output,
		InputDigest:   r.InputDigest,
		OutputDigest:  r.OutputDigest,
		ProgramDigest: r.ProgramDigest,
		Status:        r.Status,
		ErrorCode:     r.ErrorCode,
		Message:       r.Message,
	}
}
