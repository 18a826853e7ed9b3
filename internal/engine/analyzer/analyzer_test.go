package analyzer

import (
	"context"
	"log/slog"
	"testing"

	"reforge/internal/engine/parser"
)

func newTestAnalyzer() *Analyzer {
	adapter := parser.NewAdapter(parser.NewGrammarLoader())
	return New(adapter, Options{Workers: 2}, slog.Default())
}

func findImport(imports []ImportedSymbol, name string) *ImportedSymbol {
	for i := range imports {
		if imports[i].Name == name {
			return &imports[i]
		}
	}
	return nil
}

func findExport(exports []ExportedSymbol, name string) *ExportedSymbol {
	for i := range exports {
		if exports[i].Name == name {
			return &exports[i]
		}
	}
	return nil
}

func findConstruct(constructs []Construct, name string) *Construct {
	for i := range constructs {
		if constructs[i].Name == name {
			return &constructs[i]
		}
	}
	return nil
}

func TestImportExtraction(t *testing.T) {
	a := newTestAnalyzer()

	code := `
import React from 'react';
import { useState, useEffect as effect } from 'react';
import * as utils from './utils';
import type { Config } from './config';
import './styles.css';
`
	analysis, _, err := a.AnalyzeFile("src/app.ts", []byte(code))
	if err != nil {
		t.Fatal(err)
	}

	react := findImport(analysis.Imports, "React")
	if react == nil || react.Kind != ImportDefault || react.SourceModule != "react" {
		t.Errorf("default import not extracted: %+v", react)
	}

	useState := findImport(analysis.Imports, "useState")
	if useState == nil || useState.Kind != ImportNamed {
		t.Errorf("named import not extracted: %+v", useState)
	}

	effect := findImport(analysis.Imports, "useEffect")
	if effect == nil || effect.Alias != "effect" {
		t.Errorf("aliased import not extracted: %+v", effect)
	}

	ns := findImport(analysis.Imports, "utils")
	if ns == nil || ns.Kind != ImportNamespace {
		t.Errorf("namespace import not extracted: %+v", ns)
	}

	typeImp := findImport(analysis.Imports, "Config")
	if typeImp == nil || typeImp.Kind != ImportType || !typeImp.IsTypeOnly {
		t.Errorf("type-only import not extracted: %+v", typeImp)
	}

	side := findImport(analysis.Imports, "./styles.css")
	if side == nil || side.Kind != ImportSideEffect {
		t.Errorf("side-effect import not extracted: %+v", side)
	}
}

func TestExportExtraction(t *testing.T) {
	a := newTestAnalyzer()

	code := `
export function transform(input: string): string {
	return input.trim();
}

export const LIMIT = 100;

export const double = (n: number) => n * 2;

export class Pipeline {
	run() {}
}

export interface Step {
	name: string;
}

export { transform as rename } from './other';
export * from './shared';
`
	analysis, _, err := a.AnalyzeFile("src/lib.ts", []byte(code))
	if err != nil {
		t.Fatal(err)
	}

	fn := findExport(analysis.Exports, "transform")
	if fn == nil || !fn.IsFunction || fn.Kind != ExportNamed {
		t.Errorf("function export not extracted: %+v", fn)
	}
	if fn != nil && len(fn.Params) != 1 {
		t.Errorf("expected 1 param, got %v", fn.Params)
	}

	constant := findExport(analysis.Exports, "LIMIT")
	if constant == nil || !constant.IsConstant {
		t.Errorf("constant export not extracted: %+v", constant)
	}

	arrow := findExport(analysis.Exports, "double")
	if arrow == nil || !arrow.IsFunction {
		t.Errorf("arrow export not extracted: %+v", arrow)
	}

	class := findExport(analysis.Exports, "Pipeline")
	if class == nil || !class.IsClass {
		t.Errorf("class export not extracted: %+v", class)
	}

	iface := findExport(analysis.Exports, "Step")
	if iface == nil || iface.Kind != ExportType {
		t.Errorf("interface export not extracted: %+v", iface)
	}

	reexport := findExport(analysis.Exports, "rename")
	if reexport == nil || reexport.Kind != ExportReExport || reexport.OriginalName != "transform" {
		t.Errorf("aliased re-export not extracted: %+v", reexport)
	}

	star := findExport(analysis.Exports, "*")
	if star == nil || star.Kind != ExportReExport || star.OriginalName != "./shared" {
		t.Errorf("star re-export not extracted: %+v", star)
	}

	// Re-export sources land in the import inventory under their own kind,
	// not as side-effect imports.
	other := findImport(analysis.Imports, "./other")
	if other == nil || other.Kind != ImportReExport {
		t.Errorf("re-export import not recorded: %+v", other)
	}
	shared := findImport(analysis.Imports, "./shared")
	if shared == nil || shared.Kind != ImportReExport {
		t.Errorf("star re-export import not recorded: %+v", shared)
	}
}

func TestDefaultExport(t *testing.T) {
	a := newTestAnalyzer()

	code := `
export default function main() {
	return 42;
}
`
	analysis, _, err := a.AnalyzeFile("src/main.ts", []byte(code))
	if err != nil {
		t.Fatal(err)
	}
	def := findExport(analysis.Exports, "default")
	if def == nil || def.Kind != ExportDefault || !def.IsFunction {
		t.Errorf("default export not extracted: %+v", def)
	}
}

func TestDynamicImports(t *testing.T) {
	a := newTestAnalyzer()

	code := `
const legacy = require('./legacy');

export async function load() {
	const mod = await import('./heavy');
	return mod;
}
`
	analysis, _, err := a.AnalyzeFile("src/loader.js", []byte(code))
	if err != nil {
		t.Fatal(err)
	}

	req := findImport(analysis.Imports, "./legacy")
	if req == nil || req.Kind != ImportDynamic {
		t.Errorf("require() not extracted: %+v", req)
	}
	dyn := findImport(analysis.Imports, "./heavy")
	if dyn == nil || dyn.Kind != ImportDynamic {
		t.Errorf("dynamic import() not extracted: %+v", dyn)
	}

	load := analysis.Functions[len(analysis.Functions)-1]
	if load.Name != "load" || !load.IsAsync {
		t.Errorf("async function not extracted: %+v", load)
	}
}

func TestConstructExtraction(t *testing.T) {
	a := newTestAnalyzer()

	code := `
// Formats a user-visible label.
// @pure
export function formatLabel(raw: string): string {
	return raw.trim().toLowerCase();
}

export const useCounter = (start: number) => {
	return start;
};

export const MAX_RETRIES = 3;

class Worker {
	run() {
		this.ticks += 1;
	}
}
`
	_, constructs, err := a.AnalyzeFile("src/widgets.ts", []byte(code))
	if err != nil {
		t.Fatal(err)
	}

	fn := findConstruct(constructs, "formatLabel")
	if fn == nil {
		t.Fatal("formatLabel construct missing")
	}
	if fn.Type != ConstructFunction || !fn.Exported {
		t.Errorf("unexpected construct: %+v", fn)
	}
	if fn.StructuralPath != "src/widgets.ts#formatLabel" {
		t.Errorf("unexpected structural path %q", fn.StructuralPath)
	}
	if fn.Hash == "" || len(fn.Hash) != 64 {
		t.Errorf("expected sha256 hash, got %q", fn.Hash)
	}
	if fn.LeadingComment == "" {
		t.Error("expected leading comment to be captured")
	}

	hook := findConstruct(constructs, "useCounter")
	if hook == nil || hook.Type != ConstructHook {
		t.Errorf("hook construct not detected: %+v", hook)
	}

	constant := findConstruct(constructs, "MAX_RETRIES")
	if constant == nil || constant.Type != ConstructConstant {
		t.Errorf("constant construct not detected: %+v", constant)
	}

	class := findConstruct(constructs, "Worker")
	if class == nil || class.Type != ConstructClass {
		t.Fatal("class construct not detected")
	}
	if !class.Facts.UsesThis {
		t.Error("expected UsesThis fact on class body")
	}

	module := findConstruct(constructs, "module")
	if module == nil || module.Type != ConstructModule {
		t.Error("module construct missing")
	}
}

func TestComponentDetection(t *testing.T) {
	a := newTestAnalyzer()

	code := `
export const Badge = ({ label }: { label: string }) => {
	return <span>{label}</span>;
};
`
	_, constructs, err := a.AnalyzeFile("src/Badge.tsx", []byte(code))
	if err != nil {
		t.Fatal(err)
	}
	badge := findConstruct(constructs, "Badge")
	if badge == nil || badge.Type != ConstructComponent {
		t.Errorf("component not detected: %+v", badge)
	}
}

func TestHashStability(t *testing.T) {
	a := newTestAnalyzer()

	code := "export function stable() {\n\treturn 1;\n}\n"

	_, first, err := a.AnalyzeFile("src/s.ts", []byte(code))
	if err != nil {
		t.Fatal(err)
	}
	_, second, err := a.AnalyzeFile("src/s.ts", []byte(code))
	if err != nil {
		t.Fatal(err)
	}
	if findConstruct(first, "stable").Hash != findConstruct(second, "stable").Hash {
		t.Error("hash must be stable across runs over identical content")
	}

	changed := "export function stable() {\n\treturn 2;\n}\n"
	_, third, err := a.AnalyzeFile("src/s.ts", []byte(changed))
	if err != nil {
		t.Fatal(err)
	}
	if findConstruct(first, "stable").Hash == findConstruct(third, "stable").Hash {
		t.Error("hash must change when the construct body changes")
	}
}

func TestBodyFactsMutation(t *testing.T) {
	a := newTestAnalyzer()

	code := `
export function accumulate(items: number[]) {
	const out = [];
	for (const item of items) {
		out.push(item * 2);
	}
	return out;
}
`
	_, constructs, err := a.AnalyzeFile("src/acc.ts", []byte(code))
	if err != nil {
		t.Fatal(err)
	}
	c := findConstruct(constructs, "accumulate")
	if c == nil {
		t.Fatal("construct missing")
	}
	if !c.Facts.HasMutationCall {
		t.Error("expected push() to register as mutation call")
	}
	if !c.Facts.HasLoop {
		t.Error("expected loop fact")
	}
}

func TestAnalyzeTree(t *testing.T) {
	a := newTestAnalyzer()

	files := map[string][]byte{
		"src/util.ts":  []byte("export function helper() { return 1; }\n"),
		"src/index.ts": []byte("import { helper } from './util';\nexport const main = () => helper();\n"),
		"src/bad.ts":   []byte("export function broken( {\n"),
	}

	ctx, constructs, err := a.AnalyzeTree(context.Background(), files)
	if err != nil {
		t.Fatal(err)
	}

	if ctx.TotalFiles != 3 {
		t.Errorf("expected 3 files, got %d", ctx.TotalFiles)
	}
	if ctx.ParseErrorCount != 1 {
		t.Errorf("expected 1 file with parse errors, got %d", ctx.ParseErrorCount)
	}
	if got := ctx.DependencyGraph["src/index.ts"]; len(got) != 1 || got[0] != "src/util.ts" {
		t.Errorf("expected index.ts -> util.ts, got %v", got)
	}
	if got := ctx.ReverseGraph["src/util.ts"]; len(got) != 1 || got[0] != "src/index.ts" {
		t.Errorf("expected util.ts <- index.ts, got %v", got)
	}
	if path, ok := ctx.DefiningFile("helper"); !ok || path != "src/util.ts" {
		t.Errorf("symbol index missing helper: %q %v", path, ok)
	}
	if len(constructs) == 0 {
		t.Fatal("expected constructs from tree analysis")
	}
	// Output must be deterministic.
	for i := 1; i < len(constructs); i++ {
		prev, cur := constructs[i-1], constructs[i]
		if prev.FilePath > cur.FilePath {
			t.Fatalf("constructs not sorted: %s before %s", prev.FilePath, cur.FilePath)
		}
	}
}

func TestAnalyzeTreeCancellation(t *testing.T) {
	a := newTestAnalyzer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := map[string][]byte{"src/a.ts": []byte("export const a = 1;\n")}
	if _, _, err := a.AnalyzeTree(ctx, files); err == nil {
		t.Error("expected cancellation error")
	}
}
