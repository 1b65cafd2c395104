// Package parse provides the source parser front end: Tree-sitter parsing of
// TypeScript and JavaScript behind a narrow, offset-annotated Node interface.
package parse

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Node is the read-only view of a syntax tree node that the resolvers walk.
// Offsets are byte offsets into the parsed content.
type Node interface {
	Type() string
	StartByte() int
	EndByte() int
	NamedChildCount() int
	NamedChild(i int) Node
	ChildByFieldName(name string) Node
}

// ParsedFile contains the parsed AST and the content it was parsed from.
type ParsedFile struct {
	Root    Node
	Content []byte
	Lang    string

	tree *sitter.Tree
}

// Close releases the underlying Tree-sitter tree, if any.
func (pf *ParsedFile) Close() {
	if pf.tree != nil {
		pf.tree.Close()
		pf.tree = nil
	}
}

// Text returns the source text covered by n.
func (pf *ParsedFile) Text(n Node) string {
	return Text(n, pf.Content)
}

// Parser wraps Tree-sitter parsers for TypeScript, TSX and JavaScript.
// Tree-sitter parsers are not safe for concurrent use, so calls are serialized.
type Parser struct {
	mu        sync.Mutex
	tsParser  *sitter.Parser
	tsxParser *sitter.Parser
	jsParser  *sitter.Parser
}

// NewParser creates a new parser with TypeScript, TSX and JavaScript grammars.
func NewParser() *Parser {
	tsParser := sitter.NewParser()
	tsParser.SetLanguage(typescript.GetLanguage())

	tsxParser := sitter.NewParser()
	tsxParser.SetLanguage(tsx.GetLanguage())

	jsParser := sitter.NewParser()
	jsParser.SetLanguage(javascript.GetLanguage())

	return &Parser{
		tsParser:  tsParser,
		tsxParser: tsxParser,
		jsParser:  jsParser,
	}
}

// LangForPath maps a file extension to a language name understood by Parse.
func LangForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx":
		return "tsx"
	case ".js", ".jsx", ".mjs", ".cjs":
		return "js"
	default:
		return "ts"
	}
}

// Parse parses content in the given language ("ts", "tsx" or "js").
func (p *Parser) Parse(content []byte, lang string) (*ParsedFile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var parser *sitter.Parser
	switch lang {
	case "tsx":
		parser = p.tsxParser
	case "js", "javascript":
		parser = p.jsParser
	default:
		// Default to TypeScript, a superset of what the engine edits
		parser = p.tsParser
	}

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing failed: %w", err)
	}

	return &ParsedFile{
		Root:    wrap(tree.RootNode()),
		Content: content,
		Lang:    lang,
		tree:    tree,
	}, nil
}

type sitterNode struct {
	n *sitter.Node
}

func wrap(n *sitter.Node) Node {
	if n == nil || n.IsNull() {
		return nil
	}
	return sitterNode{n: n}
}

func (s sitterNode) Type() string { return s.n.Type() }

func (s sitterNode) StartByte() int { return int(s.n.StartByte()) }

func (s sitterNode) EndByte() int { return int(s.n.EndByte()) }

func (s sitterNode) NamedChildCount() int { return int(s.n.NamedChildCount()) }

func (s sitterNode) NamedChild(i int) Node {
	return wrap(s.n.NamedChild(i))
}

func (s sitterNode) ChildByFieldName(name string) Node {
	return wrap(s.n.ChildByFieldName(name))
}

// Text returns the source text covered by n.
func Text(n Node, content []byte) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if start < 0 || end > len(content) || start > end {
		return ""
	}
	return string(content[start:end])
}

// NamedChildren returns the named children of n, skipping comments.
func NamedChildren(n Node) []Node {
	if n == nil {
		return nil
	}
	children := make([]Node, 0, n.NamedChildCount())
	for i := 0; i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		children = append(children, child)
	}
	return children
}

// Walk visits n and its named descendants depth-first. Returning false from
// fn skips the children of the visited node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for i := 0; i < n.NamedChildCount(); i++ {
		Walk(n.NamedChild(i), fn)
	}
}

// FindNodesOfType finds all nodes of a specific type below root.
func FindNodesOfType(root Node, nodeType string) []Node {
	var nodes []Node
	Walk(root, func(n Node) bool {
		if n.Type() == nodeType {
			nodes = append(nodes, n)
		}
		return true
	})
	return nodes
}

// Unquote strips the delimiters of a string literal.
func Unquote(literal string) string {
	return strings.Trim(literal, "\"'`")
}
