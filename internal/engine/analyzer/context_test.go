package analyzer

import (
	"strings"
	"testing"
)

func fileWith(path string, imports []ImportedSymbol, exports []ExportedSymbol) *FileAnalysis {
	return &FileAnalysis{
		Path:     path,
		Language: "typescript",
		Imports:  imports,
		Exports:  exports,
	}
}

func TestResolveImportCandidates(t *testing.T) {
	tree := map[string]bool{
		"src/util.ts":          true,
		"src/widgets/index.ts": true,
		"src/literal.js":       true,
		"src/mixed.js":         true,
		"src/mixed.ts":         true,
		"src/pages/index.js":   true,
		"src/pages/index.ts":   true,
	}
	exists := func(p string) bool { return tree[p] }

	cases := []struct {
		from, spec, want string
	}{
		{"src/app.ts", "./util", "src/util.ts"},
		{"src/app.ts", "./widgets", "src/widgets/index.ts"},
		{"src/app.ts", "./literal.js", "src/literal.js"},
		{"src/deep/nested.ts", "../util", "src/util.ts"},
		// Mid-migration ambiguity: the JS file wins over its TS sibling.
		{"src/app.ts", "./mixed", "src/mixed.js"},
		{"src/app.ts", "./pages", "src/pages/index.js"},
		{"src/app.ts", "./mixed.ts", "src/mixed.ts"},
		{"src/app.ts", "./missing", ""},
		{"src/app.ts", "react", ""},
	}
	for _, tc := range cases {
		if got := ResolveImport(tc.from, tc.spec, exists); got != tc.want {
			t.Errorf("ResolveImport(%q, %q) = %q, want %q", tc.from, tc.spec, got, tc.want)
		}
	}
}

func TestBuildContextGraphs(t *testing.T) {
	files := map[string]*FileAnalysis{
		"src/a.ts": fileWith("src/a.ts",
			[]ImportedSymbol{{Name: "b", Kind: ImportNamed, SourceModule: "./b", Line: 1}},
			[]ExportedSymbol{{Name: "a", Kind: ExportNamed, Line: 1}}),
		"src/b.ts": fileWith("src/b.ts",
			[]ImportedSymbol{{Name: "react", Kind: ImportDefault, SourceModule: "react", Line: 1}},
			[]ExportedSymbol{{Name: "b", Kind: ExportNamed, Line: 1}}),
	}

	ctx := BuildContext(files, 0.25)

	if got := ctx.Dependencies("src/a.ts"); len(got) != 1 || got[0] != "src/b.ts" {
		t.Errorf("expected a -> b, got %v", got)
	}
	if got := ctx.Dependents("src/b.ts"); len(got) != 1 || got[0] != "src/a.ts" {
		t.Errorf("expected b <- a, got %v", got)
	}
	// Package imports never become graph edges.
	if got := ctx.Dependencies("src/b.ts"); len(got) != 0 {
		t.Errorf("expected no deps for b, got %v", got)
	}
	if ctx.TotalExports != 2 || ctx.TotalImports != 2 {
		t.Errorf("unexpected counters: %d exports, %d imports", ctx.TotalExports, ctx.TotalImports)
	}

	// Accessors return copies.
	deps := ctx.Dependencies("src/a.ts")
	deps[0] = "mutated"
	if ctx.DependencyGraph["src/a.ts"][0] != "src/b.ts" {
		t.Error("Dependencies must return a copy")
	}
}

func TestBuildContextUnresolvedImportWarning(t *testing.T) {
	files := map[string]*FileAnalysis{
		"src/a.ts": fileWith("src/a.ts",
			[]ImportedSymbol{{Name: "gone", Kind: ImportNamed, SourceModule: "./gone", Line: 3}},
			nil),
	}
	ctx := BuildContext(files, 0.25)

	if len(ctx.DependencyGraph["src/a.ts"]) != 0 {
		t.Error("unresolved import must not create an edge")
	}
	warnings := files["src/a.ts"].Warnings
	if len(warnings) != 1 || !strings.Contains(warnings[0], "./gone") {
		t.Errorf("expected unresolved-import warning, got %v", warnings)
	}
}

func TestSymbolConflictFirstDefinitionWins(t *testing.T) {
	files := map[string]*FileAnalysis{
		"src/z.ts": fileWith("src/z.ts", nil,
			[]ExportedSymbol{{Name: "helper", Kind: ExportNamed, Line: 1}}),
		"src/a.ts": fileWith("src/a.ts", nil,
			[]ExportedSymbol{{Name: "helper", Kind: ExportNamed, Line: 1}}),
	}
	ctx := BuildContext(files, 0.25)

	if path, _ := ctx.DefiningFile("helper"); path != "src/a.ts" {
		t.Errorf("expected lexicographically first path to win, got %q", path)
	}
	if len(ctx.SymbolConflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(ctx.SymbolConflicts))
	}
	conflict := ctx.SymbolConflicts[0]
	if conflict.Name != "helper" || conflict.KeptPath != "src/a.ts" || conflict.LosingPath != "src/z.ts" {
		t.Errorf("unexpected conflict record: %+v", conflict)
	}
}

func TestParseErrorThreshold(t *testing.T) {
	files := map[string]*FileAnalysis{
		"src/a.ts": {Path: "src/a.ts", ParseErrors: []string{"syntax error at byte 0 (line 1)"}},
		"src/b.ts": {Path: "src/b.ts"},
	}

	ctx := BuildContext(files, 0.25)
	if !ctx.ThresholdExceeded {
		t.Error("half the files failing must exceed a 0.25 ratio")
	}
	if len(ctx.Warnings) == 0 {
		t.Error("expected a threshold warning")
	}

	relaxed := BuildContext(map[string]*FileAnalysis{
		"src/a.ts": {Path: "src/a.ts", ParseErrors: []string{"syntax error at byte 0 (line 1)"}},
		"src/b.ts": {Path: "src/b.ts"},
	}, 0.75)
	if relaxed.ThresholdExceeded {
		t.Error("0.5 ratio must not exceed a 0.75 limit")
	}
}

func TestSelfImportIgnored(t *testing.T) {
	files := map[string]*FileAnalysis{
		"src/a.ts": fileWith("src/a.ts",
			[]ImportedSymbol{{Name: "a", Kind: ImportNamed, SourceModule: "./a", Line: 1}},
			nil),
	}
	ctx := BuildContext(files, 0.25)
	if len(ctx.DependencyGraph["src/a.ts"]) != 0 {
		t.Error("self-import must not create an edge")
	}
}
