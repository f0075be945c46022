// Command tabula validates, compiles and runs YAML query documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/tabula/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		// Commands report their own failures; cobra errors (bad flags,
		// missing args) are printed here.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
