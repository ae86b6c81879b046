package graph

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// walker carries the state of a single-file tree walk. The walk visits every
// child of every node except statement_block bodies, so declarations nested
// inside executable code are never captured.
type walker struct {
	source   []byte
	filePath string
	pctx     *ProjectContext
	rec      *FileRecord
}

func (w *walker) walk(cursor *tree_sitter.TreeCursor) {
	node := cursor.Node()

	switch node.Kind() {
	case "import_statement":
		w.extractImport(node)

	case "export_statement":
		w.extractExport(node)

	case "function_declaration", "generator_function_declaration":
		if fn := w.extractFunction(node); fn != nil {
			w.rec.Functions = append(w.rec.Functions, *fn)
		}

	case "class_declaration", "abstract_class_declaration":
		if cls := w.extractClass(node); cls != nil {
			w.rec.Classes = append(w.rec.Classes, *cls)
		}

	case "lexical_declaration", "variable_declaration":
		if isTopLevel(node) {
			w.rec.Variables = append(w.rec.Variables, w.extractVariables(node)...)
		}
	}

	// Descend into every child except function/method bodies.
	if node.Kind() == "statement_block" {
		return
	}
	if cursor.GotoFirstChild() {
		w.walk(cursor)
		for cursor.GotoNextSibling() {
			w.walk(cursor)
		}
		cursor.GotoParent()
	}
}

// isTopLevel reports whether a declaration statement sits directly under the
// program root (or its export wrapper). Variable statements elsewhere are
// statements, not declarations of interest.
func isTopLevel(node *tree_sitter.Node) bool {
	parent := node.Parent()
	if parent == nil {
		return false
	}
	switch parent.Kind() {
	case "program":
		return true
	case "export_statement":
		gp := parent.Parent()
		return gp != nil && gp.Kind() == "program"
	}
	return false
}

// isExported reports whether a declaration's parent is an export statement.
func isExported(node *tree_sitter.Node) bool {
	parent := node.Parent()
	return parent != nil && parent.Kind() == "export_statement"
}

func nodeRange(node *tree_sitter.Node) Range {
	return Range{StartByte: node.StartByte(), EndByte: node.EndByte()}
}

// ---------------------------------------------------------------------------
// Imports
// ---------------------------------------------------------------------------

// extractImport records default, named, namespace, and bare imports
// distinctly: one ImportRecord per imported binding, or one nameless record
// for a bare side-effect import.
func (w *walker) extractImport(node *tree_sitter.Node) {
	sourceNode := node.ChildByFieldName("source")
	if sourceNode == nil {
		return
	}
	path := strings.Trim(sourceNode.Utf8Text(w.source), "\"'`")
	if path == "" {
		return
	}
	rng := nodeRange(node)

	var clause *tree_sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		if c := node.Child(i); c != nil && c.Kind() == "import_clause" {
			clause = c
			break
		}
	}
	if clause == nil {
		// Bare import: `import './side-effect'`.
		w.rec.Imports = append(w.rec.Imports, ImportRecord{Path: path, Range: rng})
		return
	}

	for i := uint(0); i < clause.ChildCount(); i++ {
		child := clause.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier":
			// Default import: `import foo from './x'`.
			w.rec.Imports = append(w.rec.Imports, ImportRecord{
				Name:      child.Utf8Text(w.source),
				Path:      path,
				IsDefault: true,
				Range:     rng,
			})

		case "namespace_import":
			// `import * as ns from './x'`.
			for j := uint(0); j < child.ChildCount(); j++ {
				if gc := child.Child(j); gc != nil && gc.Kind() == "identifier" {
					w.rec.Imports = append(w.rec.Imports, ImportRecord{
						Name:        gc.Utf8Text(w.source),
						Path:        path,
						IsNamespace: true,
						Range:       rng,
					})
				}
			}

		case "named_imports":
			// For `import { a, b as c } from './x'` the source-side name
			// is recorded, since cross-file resolution matches export names.
			for j := uint(0); j < child.ChildCount(); j++ {
				gc := child.Child(j)
				if gc == nil || gc.Kind() != "import_specifier" {
					continue
				}
				nameNode := gc.ChildByFieldName("name")
				if nameNode == nil {
					continue
				}
				w.rec.Imports = append(w.rec.Imports, ImportRecord{
					Name:  nameNode.Utf8Text(w.source),
					Path:  path,
					Range: rng,
				})
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Exports
// ---------------------------------------------------------------------------

// extractExport handles export statements. Exported declarations are also
// picked up by their own case in the walk (with isExported set from the
// parent); here only the export-list entry is recorded.
func (w *walker) extractExport(node *tree_sitter.Node) {
	rng := nodeRange(node)
	isDefault := false
	for i := uint(0); i < node.ChildCount(); i++ {
		if c := node.Child(i); c != nil && c.Kind() == "default" {
			isDefault = true
		}
	}

	// `export = foo` (TS export assignment).
	for i := uint(0); i < node.ChildCount(); i++ {
		if c := node.Child(i); c != nil && c.Kind() == "=" {
			if expr := node.Child(i + 1); expr != nil {
				w.rec.Exports = append(w.rec.Exports, ExportRecord{
					Name:      expr.Utf8Text(w.source),
					IsDefault: true,
					Range:     rng,
				})
			}
			return
		}
	}

	if decl := node.ChildByFieldName("declaration"); decl != nil {
		// `export function foo ...`, `export const x = ...`, etc.
		switch decl.Kind() {
		case "lexical_declaration", "variable_declaration":
			for i := uint(0); i < decl.ChildCount(); i++ {
				d := decl.Child(i)
				if d == nil || d.Kind() != "variable_declarator" {
					continue
				}
				if nameNode := d.ChildByFieldName("name"); nameNode != nil {
					w.rec.Exports = append(w.rec.Exports, ExportRecord{
						Name:      nameNode.Utf8Text(w.source),
						IsDefault: isDefault,
						Range:     rng,
					})
				}
			}
		default:
			if nameNode := decl.ChildByFieldName("name"); nameNode != nil {
				w.rec.Exports = append(w.rec.Exports, ExportRecord{
					Name:      nameNode.Utf8Text(w.source),
					IsDefault: isDefault,
					Range:     rng,
				})
			} else if isDefault {
				// `export default <expression>`.
				w.rec.Exports = append(w.rec.Exports, ExportRecord{
					Name:      "default",
					IsDefault: true,
					Range:     rng,
				})
			}
		}
		return
	}

	if value := node.ChildByFieldName("value"); value != nil && isDefault {
		// `export default foo;`
		name := value.Utf8Text(w.source)
		if value.Kind() != "identifier" {
			name = "default"
		}
		w.rec.Exports = append(w.rec.Exports, ExportRecord{
			Name:      name,
			IsDefault: true,
			Range:     rng,
		})
		return
	}

	// `export { a, b as c }`.
	for i := uint(0); i < node.ChildCount(); i++ {
		clause := node.Child(i)
		if clause == nil || clause.Kind() != "export_clause" {
			continue
		}
		for j := uint(0); j < clause.ChildCount(); j++ {
			spec := clause.Child(j)
			if spec == nil || spec.Kind() != "export_specifier" {
				continue
			}
			// The alias, when present, is the externally visible name.
			nameNode := spec.ChildByFieldName("alias")
			if nameNode == nil {
				nameNode = spec.ChildByFieldName("name")
			}
			if nameNode == nil {
				continue
			}
			w.rec.Exports = append(w.rec.Exports, ExportRecord{
				Name:      nameNode.Utf8Text(w.source),
				IsDefault: isDefault,
				Range:     rng,
			})
		}
	}
}

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

func (w *walker) extractFunction(node *tree_sitter.Node) *FunctionRecord {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	return &FunctionRecord{
		Name:       nameNode.Utf8Text(w.source),
		Params:     w.extractParams(node.ChildByFieldName("parameters")),
		ReturnType: w.extractReturnType(node),
		IsAsync:    hasKeywordChild(node, "async"),
		IsExported: isExported(node),
		Range:      nodeRange(node),
	}
}

// extractParams reads a formal_parameters list. TS parameters wrap the
// pattern in required_parameter/optional_parameter nodes; JS uses bare
// identifiers.
func (w *walker) extractParams(params *tree_sitter.Node) []ParamRecord {
	out := []ParamRecord{}
	if params == nil {
		return out
	}
	for i := uint(0); i < params.ChildCount(); i++ {
		child := params.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "required_parameter", "optional_parameter":
			p := ParamRecord{}
			if pattern := child.ChildByFieldName("pattern"); pattern != nil {
				p.Name = pattern.Utf8Text(w.source)
			}
			if ann := child.ChildByFieldName("type"); ann != nil {
				p.Type = w.pctx.resolveType(w.filePath, child.StartByte(), annotationText(ann, w.source))
			}
			if p.Name != "" {
				out = append(out, p)
			}
		case "identifier":
			out = append(out, ParamRecord{Name: child.Utf8Text(w.source)})
		}
	}
	return out
}

// extractReturnType reads the return type annotation, preferring the
// context's resolver over the raw annotation text.
func (w *walker) extractReturnType(node *tree_sitter.Node) string {
	ann := node.ChildByFieldName("return_type")
	if ann == nil {
		return ""
	}
	return w.pctx.resolveType(w.filePath, node.StartByte(), annotationText(ann, w.source))
}

// annotationText strips the leading ":" from a type_annotation node's text.
func annotationText(ann *tree_sitter.Node, source []byte) string {
	return strings.TrimSpace(strings.TrimPrefix(ann.Utf8Text(source), ":"))
}

// hasKeywordChild reports whether the node has a direct child of the given
// kind (used for async/static/const keywords).
func hasKeywordChild(node *tree_sitter.Node, kind string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		if c := node.Child(i); c != nil && c.Kind() == kind {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Classes
// ---------------------------------------------------------------------------

func (w *walker) extractClass(node *tree_sitter.Node) *ClassRecord {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	cls := &ClassRecord{
		Name:       nameNode.Utf8Text(w.source),
		Methods:    []MethodRecord{},
		Properties: []PropertyRecord{},
		IsExported: isExported(node),
		Range:      nodeRange(node),
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "class_heritage" {
			continue
		}
		w.extractHeritage(child, cls)
	}

	if body := node.ChildByFieldName("body"); body != nil {
		w.extractClassMembers(body, cls)
	}
	return cls
}

// extractHeritage splits a class_heritage clause into the superclass and the
// implemented-interface list. The TS grammar nests extends_clause and
// implements_clause; the JS grammar puts the extends expression directly
// under class_heritage.
func (w *walker) extractHeritage(heritage *tree_sitter.Node, cls *ClassRecord) {
	for i := uint(0); i < heritage.ChildCount(); i++ {
		child := heritage.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "extends_clause":
			for j := uint(0); j < child.ChildCount(); j++ {
				gc := child.Child(j)
				if gc == nil {
					continue
				}
				switch gc.Kind() {
				case "identifier", "member_expression", "generic_type":
					cls.SuperClass = gc.Utf8Text(w.source)
				}
			}
		case "implements_clause":
			for j := uint(0); j < child.ChildCount(); j++ {
				gc := child.Child(j)
				if gc == nil {
					continue
				}
				switch gc.Kind() {
				case "type_identifier", "generic_type", "nested_type_identifier":
					cls.Interfaces = append(cls.Interfaces, gc.Utf8Text(w.source))
				}
			}
		case "identifier", "member_expression":
			// JS: `class Foo extends Bar`.
			cls.SuperClass = child.Utf8Text(w.source)
		}
	}
}

// extractClassMembers classifies class body members as methods or properties
// and reads their modifier flags.
func (w *walker) extractClassMembers(body *tree_sitter.Node, cls *ClassRecord) {
	for i := uint(0); i < body.ChildCount(); i++ {
		member := body.Child(i)
		if member == nil {
			continue
		}
		switch member.Kind() {
		case "method_definition":
			nameNode := member.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			cls.Methods = append(cls.Methods, MethodRecord{
				Name:       nameNode.Utf8Text(w.source),
				Params:     w.extractParams(member.ChildByFieldName("parameters")),
				ReturnType: w.extractReturnType(member),
				IsAsync:    hasKeywordChild(member, "async"),
				IsStatic:   hasKeywordChild(member, "static"),
				Visibility: accessibility(member, w.source),
				Range:      nodeRange(member),
			})

		case "public_field_definition", "field_definition":
			nameNode := member.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			prop := PropertyRecord{
				Name:       nameNode.Utf8Text(w.source),
				IsStatic:   hasKeywordChild(member, "static"),
				Visibility: accessibility(member, w.source),
				Range:      nodeRange(member),
			}
			if ann := member.ChildByFieldName("type"); ann != nil {
				prop.Type = w.pctx.resolveType(w.filePath, member.StartByte(), annotationText(ann, w.source))
			}
			cls.Properties = append(cls.Properties, prop)
		}
	}
}

// accessibility returns the declared visibility modifier, or empty.
func accessibility(member *tree_sitter.Node, source []byte) string {
	for i := uint(0); i < member.ChildCount(); i++ {
		if c := member.Child(i); c != nil && c.Kind() == "accessibility_modifier" {
			return c.Utf8Text(source)
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// Variables
// ---------------------------------------------------------------------------

// extractVariables reads a top-level variable statement. Const-ness comes
// from the declaration keyword.
func (w *walker) extractVariables(node *tree_sitter.Node) []VariableRecord {
	isConst := hasKeywordChild(node, "const")
	exported := isExported(node)

	var out []VariableRecord
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		v := VariableRecord{
			Name:       nameNode.Utf8Text(w.source),
			IsConst:    isConst,
			IsExported: exported,
			Range:      nodeRange(child),
		}
		if ann := child.ChildByFieldName("type"); ann != nil {
			v.Type = w.pctx.resolveType(w.filePath, child.StartByte(), annotationText(ann, w.source))
		}
		out = append(out, v)
	}
	return out
}
