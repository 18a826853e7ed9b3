package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultFile is the config file Load falls back to when no path is given.
const DefaultFile = "reforge.toml"

func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultFile
	}

	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		// Missing config file means run with defaults.
	} else if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateProject(&cfg); err != nil {
		return nil, err
	}
	if err := validateAnalysis(&cfg); err != nil {
		return nil, err
	}
	if err := validateRegistry(&cfg); err != nil {
		return nil, err
	}
	if err := validateHistory(&cfg); err != nil {
		return nil, err
	}
	if err := validateObservability(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Project.Root) == "" {
		cfg.Project.Root = "."
	}
	if strings.TrimSpace(cfg.Project.Key) == "" {
		cfg.Project.Key = "default"
	}

	if strings.TrimSpace(cfg.Paths.OutputDir) == "" {
		cfg.Paths.OutputDir = "out"
	}
	if strings.TrimSpace(cfg.Paths.StateDir) == "" {
		cfg.Paths.StateDir = "data/state"
	}

	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{"node_modules", ".git", "dist", "build", "coverage"}
	}

	if cfg.Analysis.MaxParseErrorRatio == 0 {
		cfg.Analysis.MaxParseErrorRatio = 0.25
	}

	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}

	if strings.TrimSpace(cfg.Registry.File) == "" {
		cfg.Registry.File = "fp-registry.json"
	}
	if strings.TrimSpace(cfg.Registry.ReceiptsDir) == "" {
		cfg.Registry.ReceiptsDir = "receipts"
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = "history.db"
	}

	if cfg.Observability.FlushTimeout <= 0 {
		cfg.Observability.FlushTimeout = 5 * time.Second
	}
	if cfg.Observability.TracingEnabled && strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		cfg.Observability.OTLPEndpoint = "127.0.0.1:4317"
	}
}

func normalize(cfg *Config) {
	cfg.Project.Key = strings.TrimSpace(cfg.Project.Key)
	cfg.Project.Root = strings.TrimSpace(cfg.Project.Root)
	cfg.Paths.OutputDir = strings.TrimSpace(cfg.Paths.OutputDir)
	cfg.Paths.StateDir = strings.TrimSpace(cfg.Paths.StateDir)
	cfg.Classifier.RulesFile = strings.TrimSpace(cfg.Classifier.RulesFile)
	cfg.Registry.File = strings.TrimSpace(cfg.Registry.File)
	cfg.Registry.ReceiptsDir = strings.TrimSpace(cfg.Registry.ReceiptsDir)
	cfg.History.Path = strings.TrimSpace(cfg.History.Path)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)

	cfg.Exclude.Dirs = normalizePatterns(cfg.Exclude.Dirs)
	cfg.Exclude.Files = normalizePatterns(cfg.Exclude.Files)
}

func normalizePatterns(patterns []string) []string {
	normalized := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		normalized = append(normalized, p)
	}
	return normalized
}
