// Package symbol adds symbol references to the list fields of a
// declaration-metadata block, together with the import that brings the
// symbol into scope.
package symbol

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mustng65/angular-starter-schematic/change"
	"github.com/mustng65/angular-starter-schematic/filetree"
	"github.com/mustng65/angular-starter-schematic/metadata"
	"github.com/mustng65/angular-starter-schematic/parse"
)

// DefaultDecorator is the decorator whose metadata the helpers edit.
const DefaultDecorator = "NgModule"

// Frontend turns source text into a syntax tree.
type Frontend interface {
	Parse(content []byte, lang string) (*parse.ParsedFile, error)
}

// Result reports what an insertion did.
type Result struct {
	Changed     bool
	ImportAdded bool
}

// Inserter performs symbol insertions against a file tree.
type Inserter struct {
	frontend  Frontend
	decorator string
	log       *zap.Logger
}

// NewInserter creates an inserter. A nil frontend uses the tree-sitter parser
// and a nil logger discards output.
func NewInserter(frontend Frontend, log *zap.Logger) *Inserter {
	if frontend == nil {
		frontend = parse.NewParser()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Inserter{frontend: frontend, decorator: DefaultDecorator, log: log}
}

// WithDecorator returns a copy of the inserter targeting another decorator.
func (in *Inserter) WithDecorator(name string) *Inserter {
	cp := *in
	cp.decorator = name
	return &cp
}

// AddImport adds symbol to the "imports" field of the module at path.
func (in *Inserter) AddImport(host filetree.Host, path, symbol, origin string) (Result, error) {
	return in.AddSymbol(host, path, "imports", symbol, origin)
}

// AddExport adds symbol to the "exports" field of the module at path.
func (in *Inserter) AddExport(host filetree.Host, path, symbol, origin string) (Result, error) {
	return in.AddSymbol(host, path, "exports", symbol, origin)
}

// AddSymbol appends symbol to field of the metadata block in path. When
// origin is non-empty and no import of symbol from origin exists, an import
// is added as well. Both edits are committed together; a symbol already in
// the field makes the call a no-op. Nothing is written on error.
func (in *Inserter) AddSymbol(host filetree.Host, path, field, symbol, origin string) (Result, error) {
	content, err := host.Read(path)
	if err != nil {
		return Result{}, err
	}

	parsed, err := in.frontend.Parse(content, parse.LangForPath(path))
	if err != nil {
		return Result{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer parsed.Close()

	block, err := metadata.Resolve(parsed.Root, parsed.Content, in.decorator, field)
	if err != nil {
		return Result{}, fmt.Errorf("adding %s to %s: %w", symbol, path, err)
	}
	if block.Contains(symbol) {
		in.log.Debug("symbol already present",
			zap.String("path", path),
			zap.String("field", field),
			zap.String("symbol", symbol))
		return Result{}, nil
	}

	var importEdit func(*change.Recorder) error
	if origin != "" {
		importEdit = planImport(parse.ExtractImports(parsed.Root, parsed.Content), symbol, origin)
	}

	rec, err := host.BeginUpdate(path)
	if err != nil {
		return Result{}, err
	}
	if err := rec.Insert(block.Slot.Offset, block.Slot.Text(symbol), block.Slot.Bias); err != nil {
		host.Discard(rec)
		return Result{}, fmt.Errorf("adding %s to %s: %w", symbol, path, err)
	}
	if importEdit != nil {
		if err := importEdit(rec); err != nil {
			host.Discard(rec)
			return Result{}, fmt.Errorf("importing %s into %s: %w", symbol, path, err)
		}
	}
	if err := host.CommitUpdate(rec); err != nil {
		return Result{}, err
	}

	in.log.Debug("symbol added",
		zap.String("path", path),
		zap.String("field", field),
		zap.String("symbol", symbol),
		zap.Bool("import", importEdit != nil))
	return Result{Changed: true, ImportAdded: importEdit != nil}, nil
}

// planImport returns the edit that brings symbol into scope from origin, or
// nil when an import already does.
func planImport(imports []*parse.Import, symbol, origin string) func(*change.Recorder) error {
	var target *parse.Import
	for _, imp := range imports {
		if imp.Source != origin {
			continue
		}
		if imp.Imports(symbol) {
			return nil
		}
		if target == nil && imp.LastSpecifierEnd >= 0 {
			target = imp
		}
	}

	if target != nil {
		offset := target.LastSpecifierEnd
		return func(rec *change.Recorder) error {
			return rec.InsertRight(offset, ", "+symbol)
		}
	}

	statement := fmt.Sprintf("import { %s } from '%s';", symbol, origin)
	if len(imports) == 0 {
		return func(rec *change.Recorder) error {
			return rec.InsertLeft(0, statement+"\n")
		}
	}
	offset := imports[len(imports)-1].End
	return func(rec *change.Recorder) error {
		return rec.InsertRight(offset, "\n"+statement)
	}
}
