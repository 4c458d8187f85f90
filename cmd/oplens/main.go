// Package main is the entry point for the oplens CLI.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/oplens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "oplens:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
