package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

const maxSnippetBytes = 2048

// ExtractConstructs walks the program root and returns one Construct per
// top-level function, class or constant, plus a module-level construct for
// the file itself. Structural paths are stable across reordering: they key on
// file path and name, never on position.
func ExtractConstructs(root *sitter.Node, source []byte, filePath, language string) []Construct {
	var constructs []Construct

	count := root.ChildCount()
	for i := uint(0); i < count; i++ {
		node := root.Child(i)
		if node == nil {
			continue
		}
		switch node.Kind() {
		case "function_declaration", "generator_function_declaration":
			if c, ok := functionConstruct(node, node, source, filePath, language, false); ok {
				constructs = append(constructs, c)
			}
		case "class_declaration", "abstract_class_declaration":
			if c, ok := classConstruct(node, node, source, filePath); ok {
				constructs = append(constructs, c)
			}
		case "lexical_declaration", "variable_declaration":
			constructs = append(constructs, declarationConstructs(node, node, source, filePath, language, false)...)
		case "export_statement":
			constructs = append(constructs, exportedConstructs(node, source, filePath, language)...)
		}
	}

	constructs = append(constructs, moduleConstruct(root, source, filePath))
	return constructs
}

func exportedConstructs(stmt *sitter.Node, source []byte, filePath, language string) []Construct {
	var constructs []Construct
	count := stmt.ChildCount()
	for i := uint(0); i < count; i++ {
		node := stmt.Child(i)
		if node == nil {
			continue
		}
		switch node.Kind() {
		case "function_declaration", "generator_function_declaration":
			if c, ok := functionConstruct(node, stmt, source, filePath, language, true); ok {
				constructs = append(constructs, c)
			}
		case "class_declaration", "abstract_class_declaration":
			if c, ok := classConstruct(node, stmt, source, filePath); ok {
				c.Exported = true
				constructs = append(constructs, c)
			}
		case "lexical_declaration", "variable_declaration":
			constructs = append(constructs, declarationConstructs(node, stmt, source, filePath, language, true)...)
		}
	}
	return constructs
}

// functionConstruct builds a Construct for a function declaration. outer is
// the node whose leading comment and span the construct covers; for exported
// declarations that is the export statement.
func functionConstruct(node, outer *sitter.Node, source []byte, filePath, language string, exported bool) (Construct, bool) {
	name := nodeText(node.ChildByFieldName("name"), source)
	if name == "" {
		return Construct{}, false
	}
	body := node.ChildByFieldName("body")
	c := Construct{
		FilePath:       filePath,
		Name:           name,
		Type:           constructType(name, body, source, language),
		StructuralPath: structuralPath(filePath, name),
		Line:           int(node.StartPosition().Row) + 1,
		StartByte:      outer.StartByte(),
		EndByte:        outer.EndByte(),
		LeadingComment: leadingComment(outer, source),
		Exported:       exported,
		Facts:          collectBodyFacts(body, source),
	}
	fillSpan(&c, source)
	return c, true
}

func classConstruct(node, outer *sitter.Node, source []byte, filePath string) (Construct, bool) {
	name := nodeText(node.ChildByFieldName("name"), source)
	if name == "" {
		return Construct{}, false
	}
	c := Construct{
		FilePath:       filePath,
		Name:           name,
		Type:           ConstructClass,
		StructuralPath: structuralPath(filePath, name),
		Line:           int(node.StartPosition().Row) + 1,
		StartByte:      outer.StartByte(),
		EndByte:        outer.EndByte(),
		LeadingComment: leadingComment(outer, source),
		Facts:          collectBodyFacts(node.ChildByFieldName("body"), source),
	}
	fillSpan(&c, source)
	return c, true
}

// declarationConstructs handles const/let/var declarators: arrow functions
// become function/hook/component constructs, plain initializers constants.
func declarationConstructs(node, outer *sitter.Node, source []byte, filePath, language string, exported bool) []Construct {
	var constructs []Construct
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

		c := Construct{
			FilePath:       filePath,
			Name:           name,
			StructuralPath: structuralPath(filePath, name),
			Line:           int(decl.StartPosition().Row) + 1,
			StartByte:      outer.StartByte(),
			EndByte:        outer.EndByte(),
			LeadingComment: leadingComment(outer, source),
			Exported:       exported,
		}
		if value != nil && (value.Kind() == "arrow_function" || value.Kind() == "function_expression" || value.Kind() == "function") {
			body := value.ChildByFieldName("body")
			c.Type = constructType(name, body, source, language)
			c.Facts = collectBodyFacts(body, source)
		} else {
			c.Type = ConstructConstant
		}
		fillSpan(&c, source)
		constructs = append(constructs, c)
	}
	return constructs
}

// moduleConstruct covers the whole file. It carries the aggregate body facts
// so module-level side effects still surface to the classifier.
func moduleConstruct(root *sitter.Node, source []byte, filePath string) Construct {
	c := Construct{
		FilePath:       filePath,
		Name:           "module",
		Type:           ConstructModule,
		StructuralPath: structuralPath(filePath, "module"),
		Line:           1,
		StartByte:      0,
		EndByte:        uint(len(source)),
		LeadingComment: firstComment(root, source),
		Facts:          collectBodyFacts(root, source),
	}
	fillSpan(&c, source)
	return c
}

// constructType classifies a function by naming convention and body shape.
// useX is a hook; a capitalized name returning JSX is a component.
func constructType(name string, body *sitter.Node, source []byte, language string) string {
	if isHookName(name) {
		return ConstructHook
	}
	if isComponentName(name) && (language == "tsx" || returnsJSX(body)) {
		return ConstructComponent
	}
	return ConstructFunction
}

func isHookName(name string) bool {
	if !strings.HasPrefix(name, "use") || len(name) < 4 {
		return false
	}
	return unicode.IsUpper(rune(name[3]))
}

func isComponentName(name string) bool {
	if name == "" {
		return false
	}
	return unicode.IsUpper(rune(name[0]))
}

func returnsJSX(body *sitter.Node) bool {
	if body == nil {
		return false
	}
	found := false
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil || found {
			return
		}
		switch node.Kind() {
		case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
			found = true
			return
		}
		count := node.ChildCount()
		for i := uint(0); i < count; i++ {
			walk(node.Child(i))
		}
	}
	walk(body)
	return found
}

// collectBodyFacts walks a body subtree once for the syntactic facts the
// classifier weighs: mutation-ish calls, reassignment, this, hook calls,
// loops.
func collectBodyFacts(body *sitter.Node, source []byte) BodyFacts {
	var facts BodyFacts
	if body == nil {
		return facts
	}
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		switch node.Kind() {
		case "assignment_expression", "augmented_assignment_expression", "update_expression":
			facts.HasReassignment = true
		case "this":
			facts.UsesThis = true
		case "for_statement", "for_in_statement", "while_statement", "do_statement":
			facts.HasLoop = true
		case "call_expression":
			callee := calleeName(node, source)
			if isHookName(callee) {
				facts.UsesHooks = true
			}
			if isMutationCall(node, source) {
				facts.HasMutationCall = true
			}
		}
		count := node.ChildCount()
		for i := uint(0); i < count; i++ {
			walk(node.Child(i))
		}
	}
	walk(body)
	return facts
}

var mutatingMethods = map[string]bool{
	"push": true, "pop": true, "shift": true, "unshift": true,
	"splice": true, "sort": true, "reverse": true, "fill": true,
	"copyWithin": true, "set": true, "delete": true, "clear": true, "add": true,
}

func calleeName(call *sitter.Node, source []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	if fn.Kind() == "identifier" {
		return nodeText(fn, source)
	}
	return ""
}

func isMutationCall(call *sitter.Node, source []byte) bool {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "member_expression" {
		return false
	}
	prop := nodeText(fn.ChildByFieldName("property"), source)
	return mutatingMethods[prop]
}

// leadingComment collects the contiguous comment block immediately above a
// node. Multiple stacked line comments are joined in source order.
func leadingComment(node *sitter.Node, source []byte) string {
	var parts []string
	prev := node.PrevSibling()
	for prev != nil && prev.Kind() == "comment" {
		parts = append([]string{nodeText(prev, source)}, parts...)
		prev = prev.PrevSibling()
	}
	return strings.Join(parts, "\n")
}

// firstComment returns the file's opening comment, if the file starts with one.
func firstComment(root *sitter.Node, source []byte) string {
	if root == nil || root.ChildCount() == 0 {
		return ""
	}
	first := root.Child(0)
	if first != nil && first.Kind() == "comment" {
		return nodeText(first, source)
	}
	return ""
}

func structuralPath(filePath, name string) string {
	return slashPath(filePath) + "#" + name
}

// fillSpan computes the snippet and content hash from the construct's byte
// span. The hash covers the exact source bytes, so formatting-only edits
// outside the span leave it unchanged.
func fillSpan(c *Construct, source []byte) {
	start, end := c.StartByte, c.EndByte
	if start > end || end > uint(len(source)) {
		return
	}
	span := source[start:end]
	sum := sha256.Sum256(span)
	c.Hash = hex.EncodeToString(sum[:])
	if len(span) > maxSnippetBytes {
		span = span[:maxSnippetBytes]
	}
	c.Snippet = string(span)
}
