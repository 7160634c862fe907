package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tagflow/tagflow/internal/config"
	"github.com/tagflow/tagflow/internal/log"
	"github.com/tagflow/tagflow/pkg/annotate"
	"github.com/tagflow/tagflow/pkg/dataflow"
	"github.com/tagflow/tagflow/pkg/ir"
	"github.com/tagflow/tagflow/pkg/vars"
	"github.com/tagflow/tagflow/pkg/vfg"
)

// pipeline bundles the analysis stages the commands share once the program
// is lowered to SSA.
type pipeline struct {
	prog   *ir.Program
	graph  *vfg.Graph
	cls    *vfg.Classifier
	res    *vfg.Resolver
	allocs dataflow.Allocators
}

// loadConfig honors an explicit --config path, falling back to the usual
// global/project/env precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// loadProgram resolves the package patterns without building SSA yet, so a
// cache hit can skip the expensive stages entirely.
func loadProgram(logger log.Logger, patterns []string) (*ir.Program, error) {
	spin := log.NewProgressSpinner("Loading packages...")
	spin.Start()
	prog, err := ir.Load(".", patterns...)
	spin.Stop()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %v: %w", patterns, err)
	}
	logger.Debug("loaded packages", "files", len(prog.GoFiles()))
	return prog, nil
}

// buildPipeline lowers the program to SSA, recovers source variables, and
// builds the value-flow graph plus the classifier and resolver over it.
func buildPipeline(logger log.Logger, cfg *config.Config, prog *ir.Program) (*pipeline, error) {
	allocs := cfg.AllocatorTable()

	spin := log.NewProgressSpinner("Building SSA...")
	spin.Start()
	prog.Build()
	fns := prog.Functions()

	spin.Message("Recovering variables...")
	table := vars.Recover(fns, prog.Fset)

	spin.Message("Building value-flow graph...")
	graph := vfg.Build(fns, allocs)
	spin.Stop()

	logger.Info("built value-flow graph",
		"nodes", graph.NumNodes(), "edges", graph.NumEdges(), "variables", table.Len())

	var oracle annotate.Oracle
	if cfg.Annotations != "" {
		sidecar, err := annotate.LoadSidecar(cfg.Annotations, prog.Fset)
		if err != nil {
			return nil, err
		}
		oracle = sidecar
		logger.Debug("using annotation sidecar", "path", cfg.Annotations)
	} else {
		oracle = annotate.NewStructural(allocs)
		logger.Debug("no annotation sidecar, classifying structurally")
	}

	return &pipeline{
		prog:   prog,
		graph:  graph,
		cls:    vfg.NewClassifier(graph, oracle),
		res:    vfg.NewResolver(graph, table, prog.Fset),
		allocs: allocs,
	}, nil
}
