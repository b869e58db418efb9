package cli

import (
	"context"
	"io"
)

// Execute runs thecl with args and returns the process exit code. Errors
// are reported on stderr in the selected format.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	format := "text"
	if f := cmd.PersistentFlags().Lookup("format"); f != nil && isValidFormat(f.Value.String()) {
		format = f.Value.String()
	}
	out := &OutputFormatter{Format: format, Writer: stdout, ErrWriter: stderr}
	out.Report(err)
	return GetExitCode(err)
}
