package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/thecl/internal/driver"
)

// printUsage writes the translator usage text.
func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage: thecl [-Vr] [[-c | -d] VERSION] [-m ECLMAP]... [INPUT [OUTPUT]]
       thecl history [--limit N] [--input INPUT]
       thecl test [--update] [--filter GLOB] SCENARIOS
Options:
  -c  create ECL file
  -d  dump ECL file
  -V  display version information and exit
  -m  use map file for translating mnemonics
  -r  output raw ECL opcodes, applying minimal transformations
  -v, --verbose      log pipeline stages to stderr
      --format FMT   diagnostic format: text or json
      --config FILE  config file (default ./thecl.cue if present)
      --history FILE record each run in a SQLite database
  -C, --chdir DIR    resolve relative paths against DIR
      --ir           dump the canonical IR as JSON instead of source
VERSION can be:
  %s
`, versionList())
}

// versionList renders the supported versions as "6, 7, ... or 16".
func versionList() string {
	vs := driver.SupportedVersions()
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatUint(uint64(v), 10)
	}
	if len(parts) < 2 {
		return strings.Join(parts, "")
	}
	return strings.Join(parts[:len(parts)-1], ", ") + ", or " + parts[len(parts)-1]
}
