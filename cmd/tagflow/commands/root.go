package commands

import (
	"github.com/spf13/cobra"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "tagflow",
	Short: "tagflow - Static def/use chain analysis for tagged allocations",
	Long: `tagflow computes which instrumented memory accesses are influenced by
which tagged allocation sites, by traversing the program's value-flow graph.
The resulting def/use chains drive a downstream fuzzing mutation engine.

Commands:
  chains      Compute def/use chains for a program
  defs        List tagged allocation definition sites
  graph       Show value-flow graph statistics
  init        Create a tagflow configuration interactively

Use "tagflow [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}
