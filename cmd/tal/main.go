// Command tal answers SPARQL queries over every recorded state of a
// versioned RDF dataset.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/opencitations/time-agnostic-library-sub000/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tal:", err)

		// Errors that are not ExitErrors come from cobra's argument and
		// flag parsing.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			os.Exit(cli.ExitCommandError)
		}
		os.Exit(exitErr.Code)
	}
}
