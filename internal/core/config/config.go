package config

import (
	"time"
)

type Config struct {
	Version       int           `toml:"version"`
	Project       Project       `toml:"project"`
	Paths         Paths         `toml:"paths"`
	Exclude       Exclude       `toml:"exclude"`
	Analysis      Analysis      `toml:"analysis"`
	Classifier    Classifier    `toml:"classifier"`
	Watch         Watch         `toml:"watch"`
	Registry      Registry      `toml:"registry"`
	History       History       `toml:"history"`
	Observability Observability `toml:"observability"`
}

type Project struct {
	// Key namespaces history rows when several projects share a database.
	Key  string `toml:"key"`
	Root string `toml:"root"`
}

type Paths struct {
	// OutputDir receives the semantic context, plan and report artifacts.
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Analysis struct {
	Workers            int     `toml:"workers"`
	MaxFilesPerSecond  float64 `toml:"max_files_per_second"`
	MaxParseErrorRatio float64 `toml:"max_parse_error_ratio"`
	IncludeTests       bool    `toml:"include_tests"`
}

type Classifier struct {
	RulesFile string `toml:"rules_file"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Registry struct {
	File        string `toml:"file"`
	ReceiptsDir string `toml:"receipts_dir"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observability struct {
	TracingEnabled bool          `toml:"tracing_enabled"`
	OTLPEndpoint   string        `toml:"otlp_endpoint"`
	FlushTimeout   time.Duration `toml:"flush_timeout"`
}
