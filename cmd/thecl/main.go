// Command thecl translates Touhou ECL scripts between source and binary form.
package main

import (
	"context"
	"os"

	"github.com/roach88/thecl/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
