// Command thrustmig rewrites Thrust algorithm calls into oneDPL calls.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/thrustmig/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "thrustmig:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
