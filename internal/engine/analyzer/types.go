package analyzer

import (
	"time"
)

// Export kinds.
const (
	ExportNamed    = "named"
	ExportDefault  = "default"
	ExportReExport = "re-export"
	ExportType     = "type"
)

// Import kinds.
const (
	ImportNamed      = "named"
	ImportDefault    = "default"
	ImportNamespace  = "namespace"
	ImportSideEffect = "side-effect"
	ImportDynamic    = "dynamic"
	ImportType       = "type"
	// ImportReExport is the synthetic import behind export ... from './m'.
	ImportReExport = "re-export"
)

type ExportedSymbol struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Line       int      `json:"line"`
	IsFunction bool     `json:"is_function,omitempty"`
	IsClass    bool     `json:"is_class,omitempty"`
	IsConstant bool     `json:"is_constant,omitempty"`
	Params     []string `json:"params,omitempty"`
	// OriginalName is set for aliased re-exports: export { orig as name }.
	OriginalName string `json:"original_name,omitempty"`
}

type ImportedSymbol struct {
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	SourceModule string `json:"source_module"`
	Line         int    `json:"line"`
	Alias        string `json:"alias,omitempty"`
	IsTypeOnly   bool   `json:"is_type_only,omitempty"`
}

type FunctionSignature struct {
	Name       string   `json:"name"`
	Line       int      `json:"line"`
	Params     []string `json:"params"`
	IsAsync    bool     `json:"is_async,omitempty"`
	IsArrow    bool     `json:"is_arrow,omitempty"`
	IsExported bool     `json:"is_exported,omitempty"`
}

// FileAnalysis is the per-file inventory. It is created fresh on every run
// and never mutated in place; a new analysis replaces the old one.
type FileAnalysis struct {
	Path      string              `json:"path"`
	Language  string              `json:"language"`
	Exports   []ExportedSymbol    `json:"exports"`
	Imports   []ImportedSymbol    `json:"imports"`
	Functions []FunctionSignature `json:"functions"`
	// Dependencies holds only relative imports that resolved to an existing
	// file. Unresolved relative imports land in Warnings instead.
	Dependencies []string  `json:"dependencies"`
	Dependents   []string  `json:"dependents"`
	ParseErrors  []string  `json:"parse_errors,omitempty"`
	Warnings     []string  `json:"warnings,omitempty"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
}

// Construct types.
const (
	ConstructFunction  = "function"
	ConstructHook      = "hook"
	ConstructComponent = "component"
	ConstructClass     = "class"
	ConstructConstant  = "constant"
	ConstructModule    = "module"
)

// BodyFacts are the precomputed body-level facts the classifier consumes.
type BodyFacts struct {
	HasMutationCall bool `json:"has_mutation_call,omitempty"`
	HasReassignment bool `json:"has_reassignment,omitempty"`
	UsesThis        bool `json:"uses_this,omitempty"`
	UsesHooks       bool `json:"uses_hooks,omitempty"`
	HasLoop         bool `json:"has_loop,omitempty"`
}

// Construct is one tracked unit of code: a top-level function, hook,
// component, class or constant, or the whole module. The hash covers the
// construct's exact source span.
type Construct struct {
	FilePath       string    `json:"file_path"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	StructuralPath string    `json:"structural_path"`
	Line           int       `json:"line"`
	StartByte      uint      `json:"start_byte"`
	EndByte        uint      `json:"end_byte"`
	Hash           string    `json:"hash"`
	Snippet        string    `json:"snippet"`
	LeadingComment string    `json:"-"`
	Exported       bool      `json:"exported,omitempty"`
	Facts          BodyFacts `json:"facts"`
}

// SymbolConflict records a duplicate exported symbol name. The index keeps
// the first definition in lexicographic path order; the rest land here.
type SymbolConflict struct {
	Name       string `json:"name"`
	KeptPath   string `json:"kept_path"`
	LosingPath string `json:"losing_path"`
}

// SemanticContext is the aggregate analysis artifact. It is an immutable
// value rebuilt on each run; downstream components only read it.
type SemanticContext struct {
	Files           map[string]*FileAnalysis `json:"files"`
	DependencyGraph map[string][]string      `json:"dependency_graph"`
	ReverseGraph    map[string][]string      `json:"reverse_graph"`
	SymbolIndex     map[string]string        `json:"symbol_index"`
	SymbolConflicts []SymbolConflict         `json:"symbol_conflicts,omitempty"`

	TotalFiles      int `json:"total_files"`
	TotalExports    int `json:"total_exports"`
	TotalImports    int `json:"total_imports"`
	ParseErrorCount int `json:"parse_error_count"`

	// ThresholdExceeded flags an aggregate parse-error ratio above the
	// configured limit. The caller decides whether to proceed.
	ThresholdExceeded bool     `json:"threshold_exceeded,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}
