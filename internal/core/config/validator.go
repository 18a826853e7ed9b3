package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; only version 1 is supported", cfg.Version)
	}
	return nil
}

func validateProject(cfg *Config) error {
	if cfg.Project.Key == "" {
		return fmt.Errorf("project.key must not be empty")
	}
	if strings.ContainsAny(cfg.Project.Key, " \t/") {
		return fmt.Errorf("project.key must not contain spaces or slashes, got %q", cfg.Project.Key)
	}
	if cfg.Project.Root == "" {
		return fmt.Errorf("project.root must not be empty")
	}
	for _, pattern := range cfg.Exclude.Dirs {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.dirs pattern %q is invalid: %w", pattern, err)
		}
	}
	for _, pattern := range cfg.Exclude.Files {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.files pattern %q is invalid: %w", pattern, err)
		}
	}
	return nil
}

func validateAnalysis(cfg *Config) error {
	if cfg.Analysis.Workers < 0 {
		return fmt.Errorf("analysis.workers must be >= 0, got %d", cfg.Analysis.Workers)
	}
	if cfg.Analysis.MaxFilesPerSecond < 0 {
		return fmt.Errorf("analysis.max_files_per_second must be >= 0, got %g", cfg.Analysis.MaxFilesPerSecond)
	}
	if cfg.Analysis.MaxParseErrorRatio < 0 || cfg.Analysis.MaxParseErrorRatio > 1 {
		return fmt.Errorf("analysis.max_parse_error_ratio must be between 0 and 1, got %g", cfg.Analysis.MaxParseErrorRatio)
	}
	return nil
}

func validateRegistry(cfg *Config) error {
	if cfg.Registry.File == "" {
		return fmt.Errorf("registry.file must not be empty")
	}
	if cfg.Registry.ReceiptsDir == "" {
		return fmt.Errorf("registry.receipts_dir must not be empty")
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Enabled && cfg.History.Path == "" {
		return fmt.Errorf("history.path must not be empty when history is enabled")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.TracingEnabled && cfg.Observability.OTLPEndpoint == "" {
		return fmt.Errorf("observability.otlp_endpoint must not be empty when tracing is enabled")
	}
	return nil
}
