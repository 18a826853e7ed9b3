package app

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"reforge/internal/engine/parser"
)

// ScanTree walks root and returns the supported source files keyed by their
// slash-separated path relative to root. Exclude patterns match the base
// name of the directory or file, as in .gitignore-style tooling.
func ScanTree(root string, adapter *parser.Adapter, excludeDirs, excludeFiles []string, includeTests bool) (map[string][]byte, error) {
	dirGlobs, err := compileGlobs(excludeDirs, "exclude dir")
	if err != nil {
		return nil, err
	}
	fileGlobs, err := compileGlobs(excludeFiles, "exclude file")
	if err != nil {
		return nil, err
	}

	files := make(map[string][]byte)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		base := filepath.Base(path)
		if d.IsDir() {
			if path != root {
				for _, g := range dirGlobs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
			}
			return nil
		}

		if !adapter.IsSupportedPath(path) {
			return nil
		}
		if !includeTests && isTestPath(path) {
			return nil
		}
		for _, g := range fileGlobs {
			if g.Match(base) {
				return nil
			}
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = content
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return files, nil
}

func compileGlobs(patterns []string, kind string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", kind, p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func isTestPath(path string) bool {
	base := filepath.Base(path)
	if strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") {
		return true
	}
	dir := filepath.ToSlash(filepath.Dir(path))
	return strings.Contains(dir+"/", "/__tests__/") || strings.Contains(dir+"/", "/__mocks__/")
}
