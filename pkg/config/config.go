package config

import (
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// AgentSeed is one row of the agent-template seed file: the built-in
// agent catalog a fresh deployment starts from, grounded on the
// original source's load_default_agents.py. It mirrors
// models.AgentTemplate's fields without importing pkg/models (which
// itself imports pkg/config for Category/Variant, so the dependency
// can only run this direction); callers convert AgentSeed rows into
// models.AgentTemplate values before upserting them.
type AgentSeed struct {
	Name           string   `yaml:"name"`
	DisplayName    string   `yaml:"display_name"`
	Description    string   `yaml:"description"`
	PromptTemplate string   `yaml:"prompt_template"`
	Category       Category `yaml:"category"`
	Variant        Variant  `yaml:"variant"`
	BaseAgent      string   `yaml:"base_agent"`
	Premium        bool     `yaml:"premium"`
	Active         bool     `yaml:"active"`
}

// Config is the in-memory umbrella object assembled at startup from
// configDir/agents.yaml, the way the teacher's pkg/config/config.go
// bundles its own YAML-sourced registries behind one struct.
type Config struct {
	Defaults   Defaults
	AgentSeeds []AgentSeed
}

// fileConfig is the raw shape of agents.yaml.
type fileConfig struct {
	Defaults *Defaults   `yaml:"defaults"`
	Agents   []AgentSeed `yaml:"agents"`
}

// Load reads configDir/agents.yaml, expands environment variables,
// parses it, and merges any file-provided defaults onto the built-in
// ones (file values win), the same load-expand-parse-merge pipeline
// as the teacher's configLoader.loadYAML + mergo.Merge. A missing
// seed file is not fatal — main.go's own flag/.env handling already
// treats a missing configDir file as "run with built-in defaults"
// rather than refusing to start, and the seed file is not required
// for an already-migrated database that already has its templates
// loaded from a previous run.
func Load(configDir string) (*Config, error) {
	path := filepath.Join(configDir, "agents.yaml")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{Defaults: Defaults{}.WithDefaults()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	data = ExpandEnv(data)

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	defaults := Defaults{}
	if fc.Defaults != nil {
		if err := mergo.Merge(&defaults, *fc.Defaults, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging defaults from %s: %w", path, err)
		}
	}
	defaults = defaults.WithDefaults()

	return &Config{Defaults: defaults, AgentSeeds: fc.Agents}, nil
}
