// Command filtex parses, validates and compiles schema-driven filter queries.
package main

import (
	"os"

	"github.com/roach88/filtex/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
