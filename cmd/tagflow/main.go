// Package main implements the tagflow CLI.
// It performs a static def/use chain analysis over a program's value-flow
// graph: which tagged allocation sites influence which instrumented memory
// accesses.
package main

import (
	"os"

	"github.com/tagflow/tagflow/cmd/tagflow/commands"
)

var version = "dev"

func main() {
	commands.RootCmd.Version = version
	if err := commands.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
