// Command astq evaluates query pipelines over document trees.
package main

import (
	"fmt"
	"os"

	"github.com/sonarsource/astquery/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
