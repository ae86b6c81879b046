package graph

import "context"

// Range is a source byte range for a declaration.
type Range struct {
	StartByte uint `json:"startByte"`
	EndByte   uint `json:"endByte"`
}

// ImportRecord describes one imported binding. A bare side-effect import
// (`import './x'`) has an empty Name; a namespace import records the local
// alias as Name with IsNamespace set.
type ImportRecord struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsDefault   bool   `json:"isDefault"`
	IsNamespace bool   `json:"isNamespace"`
	Range       Range  `json:"range"`
}

// ExportRecord describes one exported symbol.
type ExportRecord struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
	Range     Range  `json:"range"`
}

// ParamRecord is a function or method parameter.
type ParamRecord struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// MethodRecord is a class member with a body.
type MethodRecord struct {
	Name       string        `json:"name"`
	Params     []ParamRecord `json:"params"`
	ReturnType string        `json:"returnType,omitempty"`
	IsAsync    bool          `json:"isAsync"`
	IsStatic   bool          `json:"isStatic"`
	Visibility string        `json:"visibility,omitempty"` // public/private/protected
	Range      Range         `json:"range"`
}

// PropertyRecord is a class field.
type PropertyRecord struct {
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	IsStatic   bool   `json:"isStatic"`
	Visibility string `json:"visibility,omitempty"`
	Range      Range  `json:"range"`
}

// ClassRecord describes a class declaration. The heritage clause is split
// into the single superclass and the list of implemented interfaces.
type ClassRecord struct {
	Name       string           `json:"name"`
	SuperClass string           `json:"superClass,omitempty"`
	Interfaces []string         `json:"interfaces,omitempty"`
	Methods    []MethodRecord   `json:"methods"`
	Properties []PropertyRecord `json:"properties"`
	IsExported bool             `json:"isExported"`
	Range      Range            `json:"range"`
}

// FunctionRecord describes a top-level function declaration.
type FunctionRecord struct {
	Name       string        `json:"name"`
	Params     []ParamRecord `json:"params"`
	ReturnType string        `json:"returnType,omitempty"`
	IsAsync    bool          `json:"isAsync"`
	IsExported bool          `json:"isExported"`
	Range      Range         `json:"range"`
}

// VariableRecord describes a top-level variable declaration.
type VariableRecord struct {
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	IsConst    bool   `json:"isConst"`
	IsExported bool   `json:"isExported"`
	Range      Range  `json:"range"`
}

// FileRecord holds everything extracted from a single source file, in
// declaration order. Declarations nested inside function or method bodies
// are never captured.
type FileRecord struct {
	FilePath  string           `json:"filePath"`
	Language  string           `json:"language"`
	Imports   []ImportRecord   `json:"imports"`
	Exports   []ExportRecord   `json:"exports"`
	Classes   []ClassRecord    `json:"classes"`
	Functions []FunctionRecord `json:"functions"`
	Variables []VariableRecord `json:"variables"`
}

// Extractor turns one file's source text into a FileRecord.
// Implementations: TreeSitterExtractor (production), stub extractors (tests).
// A parse failure is returned as an error; the caller owns the decision to
// skip the file and continue.
type Extractor interface {
	Extract(ctx context.Context, source []byte, filePath string) (*FileRecord, error)
}
