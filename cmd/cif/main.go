// Package main is the entry point for the cif application.
package main

import (
	"os"

	"github.com/jmylchreest/cif/cmd/cif/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
