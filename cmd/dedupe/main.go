// Package main is the entry point for the dedupe CLI.
package main

import (
	"os"

	"github.com/leeovery/dedupe/internal/cli"
)

func main() {
	app := &cli.App{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Dir:    ".",
	}

	// Resolve working directory
	if wd, err := os.Getwd(); err == nil {
		app.Dir = wd
	}

	os.Exit(app.Run(os.Args))
}
