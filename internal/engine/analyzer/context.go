package analyzer

import (
	"fmt"
	"sort"

	"reforge/internal/shared/util"
)

// BuildContext assembles the aggregate view over a set of per-file analyses:
// the forward and reverse dependency graphs, the exported-symbol index and
// the run-level counters. Inputs are not mutated beyond filling each
// analysis's Dependencies and Dependents from resolved imports.
func BuildContext(files map[string]*FileAnalysis, maxParseErrorRatio float64) *SemanticContext {
	ctx := &SemanticContext{
		Files:           files,
		DependencyGraph: make(map[string][]string, len(files)),
		ReverseGraph:    make(map[string][]string, len(files)),
		SymbolIndex:     make(map[string]string),
		TotalFiles:      len(files),
	}

	exists := func(path string) bool {
		_, ok := files[path]
		return ok
	}

	// Deterministic iteration everywhere: path-sorted.
	paths := util.SortedStringKeys(files)

	for _, path := range paths {
		analysis := files[path]
		seen := make(map[string]bool)
		var deps []string
		for _, imp := range analysis.Imports {
			if !IsRelativeImport(imp.SourceModule) {
				continue
			}
			resolved := ResolveImport(path, imp.SourceModule, exists)
			if resolved == "" {
				analysis.Warnings = append(analysis.Warnings,
					fmt.Sprintf("unresolved import %q at line %d", imp.SourceModule, imp.Line))
				continue
			}
			if resolved == path || seen[resolved] {
				continue
			}
			seen[resolved] = true
			deps = append(deps, resolved)
		}
		sort.Strings(deps)
		analysis.Dependencies = deps
		ctx.DependencyGraph[path] = deps
		ctx.TotalImports += len(analysis.Imports)
		ctx.TotalExports += len(analysis.Exports)
		if len(analysis.ParseErrors) > 0 {
			ctx.ParseErrorCount++
		}
	}

	// Transpose.
	for _, from := range paths {
		for _, to := range ctx.DependencyGraph[from] {
			ctx.ReverseGraph[to] = append(ctx.ReverseGraph[to], from)
		}
	}
	for _, path := range paths {
		dependents := ctx.ReverseGraph[path]
		sort.Strings(dependents)
		files[path].Dependents = dependents
	}

	buildSymbolIndex(ctx, paths)

	if ctx.TotalFiles > 0 {
		ratio := float64(ctx.ParseErrorCount) / float64(ctx.TotalFiles)
		if ratio > maxParseErrorRatio {
			ctx.ThresholdExceeded = true
			ctx.Warnings = append(ctx.Warnings,
				fmt.Sprintf("parse errors in %d of %d files (ratio %.2f exceeds %.2f)",
					ctx.ParseErrorCount, ctx.TotalFiles, ratio, maxParseErrorRatio))
		}
	}

	return ctx
}

// buildSymbolIndex maps each exported symbol name to its defining file.
// Duplicates keep the first definition in lexicographic path order; every
// loser is recorded as a conflict so the collision stays visible.
func buildSymbolIndex(ctx *SemanticContext, paths []string) {
	for _, path := range paths {
		for _, exp := range ctx.Files[path].Exports {
			if exp.Name == "" || exp.Name == "*" {
				continue
			}
			if kept, ok := ctx.SymbolIndex[exp.Name]; ok {
				if kept != path {
					ctx.SymbolConflicts = append(ctx.SymbolConflicts, SymbolConflict{
						Name:       exp.Name,
						KeptPath:   kept,
						LosingPath: path,
					})
				}
				continue
			}
			ctx.SymbolIndex[exp.Name] = path
		}
	}
}

// Dependencies returns a copy of the files path depends on.
func (c *SemanticContext) Dependencies(path string) []string {
	return cloneSlice(c.DependencyGraph[path])
}

// Dependents returns a copy of the files that depend on path.
func (c *SemanticContext) Dependents(path string) []string {
	return cloneSlice(c.ReverseGraph[path])
}

// DefiningFile looks up the file exporting the given symbol name.
func (c *SemanticContext) DefiningFile(symbol string) (string, bool) {
	path, ok := c.SymbolIndex[symbol]
	return path, ok
}

// SortedFilePaths lists all analyzed paths in lexicographic order.
func (c *SemanticContext) SortedFilePaths() []string {
	return util.SortedStringKeys(c.Files)
}

func cloneSlice(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
