package parse

import (
	"strings"
)

// Import represents a top-level import statement.
type Import struct {
	Source    string            // Import path (e.g., "./core/material.module", "@angular/forms")
	Default   string            // Default import name (import X from ...)
	Namespace string            // Namespace import (import * as X from ...)
	Named     map[string]string // Named imports {local: exported}
	Start     int               // Byte offset of the statement
	End       int               // Byte offset just past the statement

	// LastSpecifierEnd is the end of the last named specifier, or -1 when the
	// statement has no braces. BracesEnd is the offset of the closing brace.
	LastSpecifierEnd int
	BracesEnd        int
}

// Imports reports whether the statement brings name into scope.
func (imp *Import) Imports(name string) bool {
	if imp.Default == name || imp.Namespace == name {
		return true
	}
	_, ok := imp.Named[name]
	return ok
}

// ExtractImports returns the top-level import statements of a parsed file in
// source order.
func ExtractImports(root Node, content []byte) []*Import {
	var imports []*Import
	for _, child := range NamedChildren(root) {
		if child.Type() != "import_statement" {
			continue
		}
		if imp := parseImportStatement(child, content); imp != nil {
			imports = append(imports, imp)
		}
	}
	return imports
}

// parseImportStatement parses an import statement.
// Handles:
//   - import foo from './bar'           (default)
//   - import * as foo from './bar'      (namespace)
//   - import { a, b as c } from './bar' (named)
//   - import './bar'                    (side-effect)
//   - import foo, { a, b } from './bar' (default + named)
func parseImportStatement(node Node, content []byte) *Import {
	imp := &Import{
		Named:            make(map[string]string),
		Start:            node.StartByte(),
		End:              node.EndByte(),
		LastSpecifierEnd: -1,
		BracesEnd:        -1,
	}

	if source := node.ChildByFieldName("source"); source != nil {
		imp.Source = Unquote(Text(source, content))
	}

	for _, child := range NamedChildren(node) {
		switch child.Type() {
		case "string":
			if imp.Source == "" {
				imp.Source = Unquote(Text(child, content))
			}
		case "import_clause":
			parseImportClause(child, content, imp)
		}
	}

	if imp.Source == "" {
		return nil
	}
	return imp
}

// parseImportClause parses the import clause (everything between 'import' and 'from').
func parseImportClause(node Node, content []byte, imp *Import) {
	for _, child := range NamedChildren(node) {
		switch child.Type() {
		case "identifier":
			imp.Default = Text(child, content)

		case "namespace_import":
			for _, id := range NamedChildren(child) {
				if id.Type() == "identifier" {
					imp.Namespace = Text(id, content)
					break
				}
			}

		case "named_imports":
			parseNamedImports(child, content, imp)
		}
	}
}

// parseNamedImports parses: { a, b as c, d }
func parseNamedImports(node Node, content []byte, imp *Import) {
	imp.BracesEnd = node.EndByte() - 1

	for _, spec := range NamedChildren(node) {
		if spec.Type() != "import_specifier" {
			continue
		}
		exported := Text(spec.ChildByFieldName("name"), content)
		local := Text(spec.ChildByFieldName("alias"), content)
		if exported == "" {
			// Fall back to positional identifiers
			ids := NamedChildren(spec)
			if len(ids) == 0 {
				continue
			}
			exported = Text(ids[0], content)
			if len(ids) > 1 {
				local = Text(ids[1], content)
			}
		}
		if local == "" {
			local = exported
		}
		imp.Named[strings.TrimSpace(local)] = strings.TrimSpace(exported)
		imp.LastSpecifierEnd = spec.EndByte()
	}
}
