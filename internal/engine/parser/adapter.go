package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"reforge/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// maxReportedErrors caps the number of syntax error locations collected from a
// single malformed file.
const maxReportedErrors = 10

// SyntaxError is one malformed region found in an otherwise parseable file.
type SyntaxError struct {
	Message string `json:"message"`
	Offset  uint   `json:"offset"`
	Line    int    `json:"line"`
}

func (e SyntaxError) String() string {
	return fmt.Sprintf("%s at byte %d (line %d)", e.Message, e.Offset, e.Line)
}

// Result is a successful parse. Tree is owned by the caller and must be
// closed. SyntaxErrors lists malformed regions; the tree around them is
// still usable for extraction.
type Result struct {
	Language     string
	Tree         *sitter.Tree
	SyntaxErrors []SyntaxError
}

func (r *Result) Close() {
	if r != nil && r.Tree != nil {
		r.Tree.Close()
	}
}

// Adapter wraps the tree-sitter grammars for JS/TS/JSX/TSX. Each ParseFile
// call is pure given its inputs; the adapter holds no mutable state beyond
// the parser pools, which are safe for concurrent use.
type Adapter struct {
	loader *GrammarLoader
	pools  map[string]*ParserPool
}

func NewAdapter(loader *GrammarLoader) *Adapter {
	a := &Adapter{
		loader: loader,
		pools:  make(map[string]*ParserPool, 3),
	}
	for _, id := range loader.SupportedLanguages() {
		a.pools[id] = NewParserPool(loader.Language(id))
	}
	return a
}

// LanguageForPath maps a file extension to a grammar id, or "" when the path
// is not a supported source file.
func (a *Adapter) LanguageForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return LangTypeScript
	case ".tsx", ".jsx":
		return LangTSX
	case ".js", ".mjs", ".cjs":
		return LangJavaScript
	}
	return ""
}

func (a *Adapter) IsSupportedPath(path string) bool {
	return a.LanguageForPath(path) != ""
}

// ParseFile parses content into a syntax tree. It never panics on malformed
// input: syntax errors are reported on the Result with their byte offsets,
// and a nil tree (parser-level failure) comes back as a PARSE_FAILED error.
func (a *Adapter) ParseFile(path string, content []byte) (*Result, error) {
	lang := a.LanguageForPath(path)
	if lang == "" {
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("unsupported file type: %s", path))
	}

	pool := a.pools[lang]
	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeParseFailed, fmt.Sprintf("parser returned no tree for %s", path))
	}

	res := &Result{Language: lang, Tree: tree}
	root := tree.RootNode()
	if root.HasError() {
		res.SyntaxErrors = collectSyntaxErrors(root, nil)
	}
	return res, nil
}

// collectSyntaxErrors walks the tree depth-first gathering ERROR and MISSING
// nodes, up to maxReportedErrors.
func collectSyntaxErrors(node *sitter.Node, acc []SyntaxError) []SyntaxError {
	if node == nil || len(acc) >= maxReportedErrors {
		return acc
	}
	if node.IsError() {
		return append(acc, SyntaxError{
			Message: "syntax error",
			Offset:  node.StartByte(),
			Line:    int(node.StartPosition().Row) + 1,
		})
	}
	if node.IsMissing() {
		return append(acc, SyntaxError{
			Message: fmt.Sprintf("missing %s", node.Kind()),
			Offset:  node.StartByte(),
			Line:    int(node.StartPosition().Row) + 1,
		})
	}
	if !node.HasError() {
		return acc
	}
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		acc = collectSyntaxErrors(node.Child(i), acc)
		if len(acc) >= maxReportedErrors {
			break
		}
	}
	return acc
}
