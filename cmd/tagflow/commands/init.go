package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tagflow/tagflow/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a tagflow configuration interactively",
	Long: `Guides you through setting up tagflow configuration step by step.
Creates a config file with the allocator names and analysis settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func runInit() error {
	cfg := config.DefaultConfig()

	useDefaults := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Allocator names").
				Description("Use the default tagged allocator names (tagged_malloc, tagged_calloc, tagged_realloc)?").
				Affirmative("Yes, use defaults").
				Negative("No, enter my own").
				Value(&useDefaults),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	if !useDefaults {
		malloc, calloc, realloc := "tagged_malloc", "tagged_calloc", "tagged_realloc"
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Fresh allocation function").
					Placeholder("tagged_malloc").
					Value(&malloc),
				huh.NewInput().
					Title("Zero-initialized allocation function").
					Placeholder("tagged_calloc").
					Value(&calloc),
				huh.NewInput().
					Title("Reallocation function").
					Placeholder("tagged_realloc").
					Value(&realloc),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		cfg.Allocators = map[string]string{}
		if s := strings.TrimSpace(malloc); s != "" {
			cfg.Allocators[s] = "malloc"
		}
		if s := strings.TrimSpace(calloc); s != "" {
			cfg.Allocators[s] = "calloc"
		}
		if s := strings.TrimSpace(realloc); s != "" {
			cfg.Allocators[s] = "realloc"
		}
	}

	annotations := ""
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Annotation marker file (optional, press Enter to skip)").
				Description("Path to the instrumentation stage's marker file; empty classifies structurally").
				Placeholder("markers.yaml").
				Value(&annotations),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	cfg.Annotations = strings.TrimSpace(annotations)

	if err := cfg.Validate(); err != nil {
		return err
	}

	path := filepath.Join(".tagflow", "config.yaml")
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", path)
	return nil
}

func init() {
	RootCmd.AddCommand(initCmd)
}
