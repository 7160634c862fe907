// Package config loads tagflow's YAML configuration, merging global and
// project files with TAGFLOW_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/tagflow/tagflow/pkg/dataflow"
)

// Config holds all configuration for tagflow
type Config struct {
	// Allocators maps recognized tagged-allocation operation names to what
	// they do with memory: malloc, calloc, or realloc.
	Allocators map[string]string `yaml:"allocators"`

	// Annotations is the path to the instrumentation stage's marker file.
	// Empty means classify structurally.
	Annotations string `yaml:"annotations"`

	// Workers bounds concurrent per-definition analysis. 0 means one per CPU.
	Workers int `yaml:"workers"`

	// CacheDir overrides where analysis results are cached.
	CacheDir string `yaml:"cache_dir"`

	// NoCache disables the result cache entirely.
	NoCache bool `yaml:"no_cache"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Allocators: map[string]string{
			"tagged_malloc":  "malloc",
			"tagged_calloc":  "calloc",
			"tagged_realloc": "realloc",
		},
		Workers: 0,
	}
}

func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".tagflow", "config.yaml")
	}
	return filepath.Join(home, ".tagflow", "config.yaml")
}

func projectConfigFilePath() string {
	return filepath.Join(".tagflow", "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.tagflow/config.yaml)
// 3. Global config (~/.tagflow/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{globalConfigFilePath(), projectConfigFilePath()} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := decode(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode unmarshals a YAML config document over cfg. yaml merges map keys
// into an existing map, so a document that provides its own allocator table
// would otherwise keep the lower-priority names recognized; a document that
// sets the allocators key replaces the table wholesale instead.
func decode(data []byte, cfg *Config) error {
	var doc struct {
		Allocators map[string]string `yaml:"allocators"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Allocators != nil {
		cfg.Allocators = nil
	}
	return yaml.Unmarshal(data, cfg)
}

// Save writes the configuration to the specified YAML file path, creating
// parent directories as needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TAGFLOW_ANNOTATIONS"); v != "" {
		cfg.Annotations = v
	}
	if v := os.Getenv("TAGFLOW_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("TAGFLOW_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("TAGFLOW_NO_CACHE"); v != "" {
		cfg.NoCache = v == "true" || v == "1" || v == "yes"
	}
	if v := os.Getenv("TAGFLOW_VERBOSE"); v != "" {
		cfg.Verbose = v == "true" || v == "1" || v == "yes"
	}
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	if len(c.Allocators) == 0 {
		return fmt.Errorf("allocators must name at least one tagged allocation operation")
	}
	for name, kind := range c.Allocators {
		switch kind {
		case "malloc", "calloc", "realloc":
		default:
			return fmt.Errorf("allocator %s: invalid kind %q (must be 'malloc', 'calloc' or 'realloc')", name, kind)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}
	return nil
}

// AllocatorTable converts the configured allocator names into the engine's
// allocator classification table.
func (c *Config) AllocatorTable() dataflow.Allocators {
	table := make(dataflow.Allocators, len(c.Allocators))
	for name, kind := range c.Allocators {
		switch kind {
		case "malloc":
			table[name] = dataflow.AllocMalloc
		case "calloc":
			table[name] = dataflow.AllocCalloc
		case "realloc":
			table[name] = dataflow.AllocRealloc
		}
	}
	return table
}
