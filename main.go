package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/compozy/trainconf/cli"
	"github.com/compozy/trainconf/cli/helpers"
	_ "github.com/compozy/trainconf/engine/textclf" // Register built-in records
)

func main() {
	cmd := cli.RootCmd()
	if err := cmd.Execute(); err != nil {
		// Command handlers report their own errors; usage and setup errors are printed here.
		var cliErr *helpers.CliError
		if !errors.As(err, &cliErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
