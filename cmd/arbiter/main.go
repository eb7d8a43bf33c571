// ABOUTME: Entry point for the arbiter command - runs the pool simulation configured
// ABOUTME: from flags and ARBITER_* environment variables.
package main

import (
	"fmt"
	"os"

	"github.com/2389-research/arbiter/cli/cmd"
)

func main() {
	if err := cmd.New(os.Stdin, os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
