package analyzer

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// extractFile walks the program root once, filling the analysis with exports,
// imports and function signatures. Structural pattern match on node kinds, so
// re-exports, type-only imports, namespace imports, dynamic import() and
// aliasing are each represented precisely.
func extractFile(root *sitter.Node, source []byte, analysis *FileAnalysis) {
	count := root.ChildCount()
	for i := uint(0); i < count; i++ {
		node := root.Child(i)
		if node == nil {
			continue
		}
		switch node.Kind() {
		case "import_statement":
			extractImportStatement(node, source, analysis)
		case "export_statement":
			extractExportStatement(node, source, analysis)
		case "function_declaration", "generator_function_declaration":
			if sig, ok := functionSignature(node, source, false); ok {
				analysis.Functions = append(analysis.Functions, sig)
			}
		case "lexical_declaration", "variable_declaration":
			extractDeclaration(node, source, analysis, false)
		}
	}

	// Dynamic import() and CommonJS require() can appear at any depth.
	walkDynamicImports(root, source, analysis)
}

func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start >= end || end > uint(len(source)) {
		return ""
	}
	return strings.TrimSpace(string(source[start:end]))
}

func nodeLine(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// stringValue unwraps a string literal node to its content without quotes.
func stringValue(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		ch := node.Child(i)
		if ch != nil && ch.Kind() == "string_fragment" {
			return nodeText(ch, source)
		}
	}
	return strings.Trim(nodeText(node, source), "'\"`")
}

// extractImportStatement handles ES module imports: default, named, aliased,
// namespace, side-effect and type-only forms.
func extractImportStatement(node *sitter.Node, source []byte, analysis *FileAnalysis) {
	line := nodeLine(node)
	var clause *sitter.Node
	var sourceModule string
	typeOnly := false

	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		ch := node.Child(i)
		if ch == nil {
			continue
		}
		switch ch.Kind() {
		case "type":
			// import type { X } from './m'
			typeOnly = true
		case "import_clause":
			clause = ch
		case "string":
			sourceModule = stringValue(ch, source)
		}
	}
	if sourceModule == "" {
		return
	}

	if clause == nil {
		// import './side-effect'
		analysis.Imports = append(analysis.Imports, ImportedSymbol{
			Name:         sourceModule,
			Kind:         ImportSideEffect,
			SourceModule: sourceModule,
			Line:         line,
		})
		return
	}

	clauseCount := clause.ChildCount()
	for i := uint(0); i < clauseCount; i++ {
		ch := clause.Child(i)
		if ch == nil {
			continue
		}
		switch ch.Kind() {
		case "identifier":
			// import foo from './m'
			analysis.Imports = append(analysis.Imports, ImportedSymbol{
				Name:         nodeText(ch, source),
				Kind:         importKind(ImportDefault, typeOnly),
				SourceModule: sourceModule,
				Line:         line,
				IsTypeOnly:   typeOnly,
			})
		case "namespace_import":
			// import * as ns from './m'
			alias := ""
			nsCount := ch.ChildCount()
			for j := uint(0); j < nsCount; j++ {
				gc := ch.Child(j)
				if gc != nil && gc.Kind() == "identifier" {
					alias = nodeText(gc, source)
				}
			}
			analysis.Imports = append(analysis.Imports, ImportedSymbol{
				Name:         alias,
				Kind:         importKind(ImportNamespace, typeOnly),
				SourceModule: sourceModule,
				Line:         line,
				Alias:        alias,
				IsTypeOnly:   typeOnly,
			})
		case "named_imports":
			niCount := ch.ChildCount()
			for j := uint(0); j < niCount; j++ {
				spec := ch.Child(j)
				if spec == nil || spec.Kind() != "import_specifier" {
					continue
				}
				name := nodeText(spec.ChildByFieldName("name"), source)
				alias := nodeText(spec.ChildByFieldName("alias"), source)
				specTypeOnly := typeOnly || hasKeywordChild(spec, "type")
				if name == "" {
					continue
				}
				analysis.Imports = append(analysis.Imports, ImportedSymbol{
					Name:         name,
					Kind:         importKind(ImportNamed, specTypeOnly),
					SourceModule: sourceModule,
					Line:         line,
					Alias:        alias,
					IsTypeOnly:   specTypeOnly,
				})
			}
		}
	}
}

func importKind(kind string, typeOnly bool) string {
	if typeOnly {
		return ImportType
	}
	return kind
}

func hasKeywordChild(node *sitter.Node, keyword string) bool {
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		ch := node.Child(i)
		if ch != nil && ch.Kind() == keyword {
			return true
		}
	}
	return false
}

// extractExportStatement handles named exports, default exports, re-exports
// (export { x } from './m', export * from './m') and exported declarations.
func extractExportStatement(node *sitter.Node, source []byte, analysis *FileAnalysis) {
	line := nodeLine(node)
	sourceNode := node.ChildByFieldName("source")
	sourceModule := ""
	if sourceNode != nil {
		sourceModule = stringValue(sourceNode, source)
	}
	isDefault := hasKeywordChild(node, "default")
	typeOnly := hasKeywordChild(node, "type")

	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		ch := node.Child(i)
		if ch == nil {
			continue
		}
		switch ch.Kind() {
		case "export_clause":
			// export { a, b as c } [from './m']
			kind := ExportNamed
			if sourceModule != "" {
				kind = ExportReExport
			}
			if typeOnly {
				kind = ExportType
			}
			ecCount := ch.ChildCount()
			for j := uint(0); j < ecCount; j++ {
				spec := ch.Child(j)
				if spec == nil || spec.Kind() != "export_specifier" {
					continue
				}
				name := nodeText(spec.ChildByFieldName("name"), source)
				alias := nodeText(spec.ChildByFieldName("alias"), source)
				if name == "" {
					continue
				}
				exported := ExportedSymbol{
					Name: name,
					Kind: kind,
					Line: nodeLine(spec),
				}
				if alias != "" {
					exported.Name = alias
					exported.OriginalName = name
				}
				analysis.Exports = append(analysis.Exports, exported)
			}
			if sourceModule != "" {
				analysis.Imports = append(analysis.Imports, ImportedSymbol{
					Name:         sourceModule,
					Kind:         ImportReExport,
					SourceModule: sourceModule,
					Line:         line,
				})
			}

		case "*":
			// export * from './m'
			if sourceModule != "" {
				analysis.Exports = append(analysis.Exports, ExportedSymbol{
					Name:         "*",
					Kind:         ExportReExport,
					Line:         line,
					OriginalName: sourceModule,
				})
				analysis.Imports = append(analysis.Imports, ImportedSymbol{
					Name:         sourceModule,
					Kind:         ImportReExport,
					SourceModule: sourceModule,
					Line:         line,
				})
			}

		case "function_declaration", "generator_function_declaration":
			sig, ok := functionSignature(ch, source, true)
			if !ok && isDefault {
				sig = FunctionSignature{Name: "default", Line: nodeLine(ch), IsExported: true}
				ok = true
			}
			if ok {
				analysis.Functions = append(analysis.Functions, sig)
				analysis.Exports = append(analysis.Exports, ExportedSymbol{
					Name:       exportName(sig.Name, isDefault),
					Kind:       exportKind(isDefault),
					Line:       sig.Line,
					IsFunction: true,
					Params:     sig.Params,
				})
			}

		case "class_declaration", "abstract_class_declaration":
			name := nodeText(ch.ChildByFieldName("name"), source)
			analysis.Exports = append(analysis.Exports, ExportedSymbol{
				Name:    exportName(name, isDefault),
				Kind:    exportKind(isDefault),
				Line:    nodeLine(ch),
				IsClass: true,
			})

		case "interface_declaration", "type_alias_declaration", "enum_declaration":
			name := nodeText(ch.ChildByFieldName("name"), source)
			if name != "" {
				analysis.Exports = append(analysis.Exports, ExportedSymbol{
					Name: name,
					Kind: ExportType,
					Line: nodeLine(ch),
				})
			}

		case "lexical_declaration", "variable_declaration":
			extractDeclaration(ch, source, analysis, true)

		case "identifier", "call_expression", "arrow_function", "object", "array",
			"member_expression", "number", "string", "true", "false":
			// export default <expression>
			if isDefault {
				analysis.Exports = append(analysis.Exports, ExportedSymbol{
					Name: "default",
					Kind: ExportDefault,
					Line: line,
				})
				if ch.Kind() == "arrow_function" {
					sig := arrowSignature(ch, source, "default", true)
					analysis.Functions = append(analysis.Functions, sig)
				}
			}
		}
	}
}

func exportName(name string, isDefault bool) string {
	if isDefault || name == "" {
		return "default"
	}
	return name
}

func exportKind(isDefault bool) string {
	if isDefault {
		return ExportDefault
	}
	return ExportNamed
}

// extractDeclaration handles const/let/var declarators: arrow functions become
// function signatures, everything else a constant export when exported.
func extractDeclaration(node *sitter.Node, source []byte, analysis *FileAnalysis, exported bool) {
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		decl := node.Child(i)
		if decl == nil || decl.Kind() != "variable_declarator" {
			continue
		}
		name := nodeText(decl.ChildByFieldName("name"), source)
		if name == "" {
			continue
		}
		value := decl.ChildByFieldName("value")

		if value != nil && (value.Kind() == "arrow_function" || value.Kind() == "function_expression" || value.Kind() == "function") {
			sig := arrowSignature(value, source, name, exported)
			sig.Line = nodeLine(decl)
			analysis.Functions = append(analysis.Functions, sig)
			if exported {
				analysis.Exports = append(analysis.Exports, ExportedSymbol{
					Name:       name,
					Kind:       ExportNamed,
					Line:       sig.Line,
					IsFunction: true,
					Params:     sig.Params,
				})
			}
			continue
		}

		if exported {
			analysis.Exports = append(analysis.Exports, ExportedSymbol{
				Name:       name,
				Kind:       ExportNamed,
				Line:       nodeLine(decl),
				IsConstant: true,
			})
		}
	}
}

// functionSignature reads a function_declaration node.
func functionSignature(node *sitter.Node, source []byte, exported bool) (FunctionSignature, bool) {
	name := nodeText(node.ChildByFieldName("name"), source)
	if name == "" {
		return FunctionSignature{}, false
	}
	return FunctionSignature{
		Name:       name,
		Line:       nodeLine(node),
		Params:     parameterNames(node.ChildByFieldName("parameters"), source),
		IsAsync:    hasKeywordChild(node, "async"),
		IsExported: exported,
	}, true
}

// arrowSignature reads an arrow_function or function_expression value node.
func arrowSignature(node *sitter.Node, source []byte, name string, exported bool) FunctionSignature {
	params := parameterNames(node.ChildByFieldName("parameters"), source)
	if params == nil {
		// Single-parameter arrow without parens: x => x + 1
		if p := node.ChildByFieldName("parameter"); p != nil {
			params = []string{nodeText(p, source)}
		}
	}
	return FunctionSignature{
		Name:       name,
		Line:       nodeLine(node),
		Params:     params,
		IsAsync:    hasKeywordChild(node, "async"),
		IsArrow:    node.Kind() == "arrow_function",
		IsExported: exported,
	}
}

// parameterNames flattens a formal_parameters node. TS wraps each entry in
// required_parameter/optional_parameter; JS uses bare patterns.
func parameterNames(node *sitter.Node, source []byte) []string {
	if node == nil {
		return nil
	}
	var params []string
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		ch := node.Child(i)
		if ch == nil {
			continue
		}
		switch ch.Kind() {
		case "required_parameter", "optional_parameter":
			if pattern := ch.ChildByFieldName("pattern"); pattern != nil {
				params = append(params, compactParam(nodeText(pattern, source)))
			}
		case "identifier", "rest_pattern", "object_pattern", "array_pattern", "assignment_pattern":
			params = append(params, compactParam(nodeText(ch, source)))
		}
	}
	return params
}

func compactParam(text string) string {
	fields := strings.Fields(text)
	joined := strings.Join(fields, " ")
	if len(joined) > 64 {
		return joined[:64]
	}
	return joined
}

// walkDynamicImports records dynamic import() and CommonJS require() calls at
// any depth.
func walkDynamicImports(node *sitter.Node, source []byte, analysis *FileAnalysis) {
	if node == nil {
		return
	}
	if node.Kind() == "call_expression" {
		if module, ok := dynamicImportTarget(node, source); ok {
			analysis.Imports = append(analysis.Imports, ImportedSymbol{
				Name:         module,
				Kind:         ImportDynamic,
				SourceModule: module,
				Line:         nodeLine(node),
			})
		}
	}
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		walkDynamicImports(node.Child(i), source, analysis)
	}
}

// dynamicImportTarget matches import('x') and require('x') with a literal
// string argument.
func dynamicImportTarget(call *sitter.Node, source []byte) (string, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return "", false
	}
	switch fn.Kind() {
	case "import":
		// import('x')
	case "identifier":
		if nodeText(fn, source) != "require" {
			return "", false
		}
	default:
		return "", false
	}

	args := call.ChildByFieldName("arguments")
	if args == nil {
		return "", false
	}
	argCount := args.ChildCount()
	for i := uint(0); i < argCount; i++ {
		arg := args.Child(i)
		if arg != nil && arg.Kind() == "string" {
			if module := stringValue(arg, source); module != "" {
				return module, true
			}
		}
	}
	return "", false
}
