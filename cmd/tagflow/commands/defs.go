package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tagflow/tagflow/internal/log"
	"github.com/tagflow/tagflow/pkg/dataflow"
)

var defsCmd = &cobra.Command{
	Use:   "defs <packages>",
	Short: "List tagged allocation definition sites",
	Long: `Lists every call site recognized as a tagged allocation, with the
source variable receiving the allocation when debug info can recover it.
Useful for checking instrumentation coverage before a full chains run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if annotations, _ := cmd.Flags().GetString("annotations"); annotations != "" {
			cfg.Annotations = annotations
		}

		logger := log.Default()
		prog, err := loadProgram(logger, args)
		if err != nil {
			return err
		}
		p, err := buildPipeline(logger, cfg, prog)
		if err != nil {
			return err
		}

		defs, err := dataflow.Collect(p.graph.CallSites(), p.allocs, p.cls, p.res)
		if errors.Is(err, dataflow.ErrNoDefs) {
			return fmt.Errorf("failed to collect any def sites")
		}
		if err != nil {
			return err
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			data, err := json.MarshalIndent(defs, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("=== %d tagged allocation sites ===\n", len(defs))
		for _, d := range defs {
			v := d.Var
			switch {
			case v.File != "":
				fmt.Printf("  %s (%s:%d, %s)\n", v.Name, v.File, v.Line, v.Func)
			case v.Func != "":
				fmt.Printf("  %s (%s)\n", v.Name, v.Func)
			default:
				fmt.Printf("  %s\n", v.Name)
			}
		}
		return nil
	},
}

func init() {
	defsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	defsCmd.Flags().StringP("annotations", "a", "", "Instrumentation marker file")
	defsCmd.Flags().String("config", "", "Config file path")
	RootCmd.AddCommand(defsCmd)
}
