// Package commands provides the CLI commands for the tagflow tool.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tagflow/tagflow/internal/config"
	"github.com/tagflow/tagflow/internal/log"
	"github.com/tagflow/tagflow/pkg/cache"
	"github.com/tagflow/tagflow/pkg/dataflow"
	"github.com/tagflow/tagflow/pkg/ir"
)

var chainsCmd = &cobra.Command{
	Use:   "chains <packages>",
	Short: "Compute def/use chains for a program",
	Long: `Loads the given Go packages, builds their value-flow graph, and computes
the def/use chain relation: every tagged allocation site mapped to the set of
instrumented loads and stores its memory can reach.

The relation is written to --out as JSON when given; --json prints it to
stdout. Results are cached by input content unless --no-cache is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		outPath, _ := cmd.Flags().GetString("out")
		printJSON, _ := cmd.Flags().GetBool("json")
		if workers, _ := cmd.Flags().GetInt("workers"); cmd.Flags().Changed("workers") {
			cfg.Workers = workers
		}
		if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
			cfg.NoCache = true
		}
		if annotations, _ := cmd.Flags().GetString("annotations"); annotations != "" {
			cfg.Annotations = annotations
		}

		logger := log.Default()
		if cfg.Verbose {
			logger.SetLevel(log.DebugLevel)
		}

		prog, err := loadProgram(logger, args)
		if err != nil {
			return err
		}

		var store *cache.Store
		var key string
		if !cfg.NoCache {
			store, key, err = openCache(cfg, prog)
			if err != nil {
				logger.Warn("result cache unavailable", "error", err)
			} else if data, err := store.Get(key); err == nil {
				logger.Info("using cached def/use chains", "key", key[:12])
				return emit(data, outPath, printJSON)
			}
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
		logger.Info("collected def sites", "defs", len(defs))

		engine := &dataflow.Engine{Graph: p.graph, Cls: p.cls, Res: p.res, Workers: cfg.Workers}
		chains, err := engine.Run(cmd.Context(), defs)
		if err != nil {
			return fmt.Errorf("collecting uses: %w", err)
		}
		logger.Info("collected use sites", "uses", chains.NumUses())

		data, err := json.MarshalIndent(chains, "", "  ")
		if err != nil {
			return fmt.Errorf("serializing def/use chains: %w", err)
		}

		if store != nil {
			if err := store.Put(key, data); err != nil {
				logger.Warn("caching result failed", "error", err)
			}
		}

		return emit(data, outPath, printJSON)
	},
}

// emit writes the serialized relation to the configured destinations. No
// output path configured means no file is written, which is not an error.
func emit(data []byte, outPath string, printJSON bool) error {
	if outPath != "" {
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			return fmt.Errorf("unable to write %s: %w", outPath, err)
		}
		log.Default().Info("wrote def/use chains", "path", outPath)
	}
	if printJSON {
		fmt.Println(string(data))
	}
	return nil
}

// openCache keys the result cache by every analysis input: the target's Go
// file contents, the annotation sidecar when one is configured, and the
// allocator table. A relation computed under different markers or allocator
// names must not be served for this run.
func openCache(cfg *config.Config, prog *ir.Program) (*cache.Store, string, error) {
	dir := cfg.CacheDir
	if dir == "" {
		dir = cache.DefaultDir()
	}
	store, err := cache.NewStore(dir)
	if err != nil {
		return nil, "", err
	}

	files := prog.GoFiles()
	if cfg.Annotations != "" {
		files = append(slices.Clone(files), cfg.Annotations)
	}
	key, err := cache.Key(files, allocatorTags(cfg)...)
	if err != nil {
		return nil, "", err
	}
	return store, key, nil
}

// allocatorTags renders the configured allocator table as sorted name=kind
// pairs, so the cache key does not depend on map iteration order.
func allocatorTags(cfg *config.Config) []string {
	tags := make([]string, 0, len(cfg.Allocators))
	for name, kind := range cfg.Allocators {
		tags = append(tags, name+"="+kind)
	}
	sort.Strings(tags)
	return tags
}

func init() {
	chainsCmd.Flags().StringP("out", "o", "", "Output JSON path")
	chainsCmd.Flags().BoolP("json", "j", false, "Print JSON to stdout")
	chainsCmd.Flags().IntP("workers", "w", 0, "Concurrent definitions (0 = one per CPU)")
	chainsCmd.Flags().Bool("no-cache", false, "Bypass the result cache")
	chainsCmd.Flags().StringP("annotations", "a", "", "Instrumentation marker file")
	chainsCmd.Flags().String("config", "", "Config file path")
	RootCmd.AddCommand(chainsCmd)
}
