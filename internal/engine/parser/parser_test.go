package parser

import (
	"strings"
	"testing"
)

func newTestAdapter() *Adapter {
	return NewAdapter(NewGrammarLoader())
}

func TestLanguageDetection(t *testing.T) {
	a := newTestAdapter()

	cases := map[string]string{
		"src/app.ts":       LangTypeScript,
		"src/App.tsx":      LangTSX,
		"src/legacy.jsx":   LangTSX,
		"src/index.js":     LangJavaScript,
		"src/worker.mjs":   LangJavaScript,
		"src/config.cjs":   LangJavaScript,
		"src/types.d.mts":  LangTypeScript,
		"README.md":        "",
		"styles/main.css":  "",
		"src/data.json":    "",
		"Makefile":         "",
		"src/UPPER.TS":     LangTypeScript,
	}
	for path, want := range cases {
		if got := a.LanguageForPath(path); got != want {
			t.Errorf("LanguageForPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestParseTypeScript(t *testing.T) {
	a := newTestAdapter()

	code := `
import { useState } from 'react';

export function counter(start: number): number {
	return start + 1;
}
`
	res, err := a.ParseFile("counter.ts", []byte(code))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if res.Language != LangTypeScript {
		t.Errorf("expected typescript, got %s", res.Language)
	}
	if len(res.SyntaxErrors) != 0 {
		t.Errorf("expected clean parse, got %v", res.SyntaxErrors)
	}
	if res.Tree.RootNode().Kind() != "program" {
		t.Errorf("expected program root, got %s", res.Tree.RootNode().Kind())
	}
}

func TestParseTSXComponent(t *testing.T) {
	a := newTestAdapter()

	code := `
export const Badge = ({ label }: { label: string }) => {
	return <span className="badge">{label}</span>;
};
`
	res, err := a.ParseFile("Badge.tsx", []byte(code))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if len(res.SyntaxErrors) != 0 {
		t.Errorf("expected clean TSX parse, got %v", res.SyntaxErrors)
	}
}

func TestParseMalformedInput(t *testing.T) {
	a := newTestAdapter()

	code := `export function broken( {`
	res, err := a.ParseFile("broken.ts", []byte(code))
	if err != nil {
		t.Fatal("malformed input must not fail hard:", err)
	}
	defer res.Close()

	if len(res.SyntaxErrors) == 0 {
		t.Fatal("expected syntax errors for malformed input")
	}
	first := res.SyntaxErrors[0]
	if first.Line < 1 {
		t.Errorf("expected 1-based line, got %d", first.Line)
	}
	if !strings.Contains(first.String(), "byte") {
		t.Errorf("expected offset in message, got %q", first.String())
	}
}

func TestUnsupportedPath(t *testing.T) {
	a := newTestAdapter()
	if _, err := a.ParseFile("main.py", []byte("print('x')")); err == nil {
		t.Fatal("expected error for unsupported language")
	}
}

func TestConcurrentParses(t *testing.T) {
	a := newTestAdapter()
	code := []byte(`export const x = 1;`)

	done := make(chan error, 16)
	for i := 0; i < 16; i++ {
		go func() {
			res, err := a.ParseFile("x.ts", code)
			if err == nil {
				res.Close()
			}
			done <- err
		}()
	}
	for i := 0; i < 16; i++ {
		if err := <-done; err != nil {
			t.Fatal(err)
		}
	}
}
