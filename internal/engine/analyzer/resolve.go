package analyzer

import (
	"path"
	"strings"
)

// resolveCandidates lists the paths a relative import specifier may point to,
// in resolution order: the literal path, extension completions, then index
// files. Extension probing is JS-first: in a tree mid-migration where both
// a.js and a.ts exist, ./a means the JavaScript file. All candidates are
// slash-normalized and relative to the project root.
var resolveExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".mts", ".cts"}

var indexNames = []string{"index.js", "index.jsx", "index.ts", "index.tsx"}

// IsRelativeImport reports whether a specifier refers to a project file rather
// than a package dependency.
func IsRelativeImport(specifier string) bool {
	return strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}

// ResolveImport maps a relative import specifier in fromPath to a project file
// path, using exists to probe the scanned file set. Returns "" when nothing
// matches.
func ResolveImport(fromPath, specifier string, exists func(string) bool) string {
	if !IsRelativeImport(specifier) {
		return ""
	}
	base := path.Join(path.Dir(slashPath(fromPath)), slashPath(specifier))

	if hasSourceExtension(base) && exists(base) {
		return base
	}
	for _, ext := range resolveExtensions {
		if candidate := base + ext; exists(candidate) {
			return candidate
		}
	}
	for _, name := range indexNames {
		if candidate := path.Join(base, name); exists(candidate) {
			return candidate
		}
	}
	return ""
}

func slashPath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func hasSourceExtension(p string) bool {
	for _, ext := range resolveExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}
