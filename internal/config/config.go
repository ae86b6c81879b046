package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds all configuration for the codegraph service.
type Config struct {
	RepoRoot    string   `koanf:"root"`
	RepoName    string   `koanf:"name"`
	DBPath      string   `koanf:"db"`
	Workers     int      `koanf:"workers"`
	ExcludeDirs []string `koanf:"exclude"`
	ListenAddr  string   `koanf:"listen"`
	Verbose     bool     `koanf:"verbose"`
}

// Load layers configuration from defaults, codegraph.toml, environment
// variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"root":    ".",
		"name":    "",
		"db":      ":memory:",
		"workers": runtime.NumCPU(),
		"exclude": []string{"node_modules", ".git", "dist", "build"},
		"listen":  "localhost:8419",
		"verbose": false,
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file (optional); absence is not an error
	_ = k.Load(file.Provider("codegraph.toml"), toml.Parser())

	// 3. Environment variables
	// Prefix: CODEGRAPH_ (e.g., CODEGRAPH_DB=/var/lib/codegraph.db)
	if err := k.Load(env.Provider("CODEGRAPH_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "CODEGRAPH_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Helper to use a map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
