// brainstore is a CLI for a content-addressed, versioned flat-file
// document store.
package main

import (
	"os"

	"github.com/pindral/brainstore/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
