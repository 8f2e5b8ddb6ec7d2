// Package main provides the entry point for sabertooth-cli.
//
// sabertooth-cli is the management tool for a running sabertooth-server,
// supporting both single-command mode and an interactive shell.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/sabertooth-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
