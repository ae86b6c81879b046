package graph

import (
	"context"
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Compile-time check that TreeSitterExtractor satisfies Extractor.
var _ Extractor = (*TreeSitterExtractor)(nil)

// TreeSitterExtractor implements Extractor using tree-sitter grammars. A new
// tree-sitter parser and a fresh ProjectContext are created per Extract call,
// so there is no shared mutable state and the extractor is safe for
// concurrent use across files.
type TreeSitterExtractor struct {
	grammars map[Dialect]*tree_sitter.Language

	// discover resolves the ProjectContext for a file. Overridable in tests
	// to avoid filesystem probing.
	discover func(filePath string) *ProjectContext
}

// NewTreeSitterExtractor creates a TreeSitterExtractor with the TypeScript,
// TSX, and JavaScript grammars registered.
func NewTreeSitterExtractor() *TreeSitterExtractor {
	return &TreeSitterExtractor{
		grammars: map[Dialect]*tree_sitter.Language{
			DialectTypeScript: tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
			DialectTSX:        tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
			DialectJavaScript: tree_sitter.NewLanguage(tree_sitter_javascript.Language()),
		},
		discover: DiscoverProjectContext,
	}
}

// Extract parses one file and walks its syntax tree once, collecting
// imports, exports, classes, functions, and top-level variables.
func (e *TreeSitterExtractor) Extract(_ context.Context, source []byte, filePath string) (*FileRecord, error) {
	pctx := e.discover(filePath)

	grammar, ok := e.grammars[pctx.Dialect]
	if !ok {
		return nil, fmt.Errorf("no grammar registered for dialect %s", pctx.Dialect)
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(grammar); err != nil {
		return nil, fmt.Errorf("set language %s: %w", pctx.Dialect, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil tree for %s", filePath)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("parse error in %s", filePath)
	}

	rec := &FileRecord{
		FilePath:  filePath,
		Language:  string(pctx.Dialect),
		Imports:   []ImportRecord{},
		Exports:   []ExportRecord{},
		Classes:   []ClassRecord{},
		Functions: []FunctionRecord{},
		Variables: []VariableRecord{},
	}

	w := &walker{source: source, filePath: filePath, pctx: pctx, rec: rec}
	cursor := root.Walk()
	defer cursor.Close()
	w.walk(cursor)

	return rec, nil
}
