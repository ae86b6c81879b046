package graph

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Dialect selects the grammar variant used to parse a file.
type Dialect string

const (
	DialectTypeScript Dialect = "typescript"
	DialectTSX        Dialect = "tsx"
	DialectJavaScript Dialect = "javascript"
)

// TypeResolver resolves the type of a declaration at a byte offset. The
// built-in resolver is syntactic: it returns the annotation text the parser
// saw. A checker-backed resolver can be plugged in; if it fails, the
// extractor falls back to the syntactic annotation without failing the parse.
type TypeResolver interface {
	ResolveType(filePath string, offset uint, annotation string) (string, error)
}

// syntacticResolver is the fixed default analysis mode: the annotation text
// is the answer.
type syntacticResolver struct{}

func (syntacticResolver) ResolveType(_ string, _ uint, annotation string) (string, error) {
	return annotation, nil
}

// ProjectContext carries the analysis settings discovered for one file. A
// fresh context is built per file; nothing is cached or shared across files.
type ProjectContext struct {
	// ConfigPath is the tsconfig.json that governs the file, or empty when
	// none was found and the default analysis mode applies.
	ConfigPath string
	Dialect    Dialect
	Resolver   TypeResolver
}

// tsconfigFile is the subset of tsconfig.json the context reads.
type tsconfigFile struct {
	CompilerOptions struct {
		JSX string `json:"jsx"`
	} `json:"compilerOptions"`
}

// DiscoverProjectContext walks parent directories of filePath looking for a
// tsconfig.json. Absence of a configuration falls back to a fixed default
// mode derived from the file extension. A malformed tsconfig.json is treated
// as absent.
func DiscoverProjectContext(filePath string) *ProjectContext {
	ctx := &ProjectContext{
		Dialect:  dialectForExtension(filePath),
		Resolver: syntacticResolver{},
	}

	dir := filepath.Dir(filePath)
	for {
		candidate := filepath.Join(dir, "tsconfig.json")
		data, err := os.ReadFile(candidate)
		if err == nil {
			var cfg tsconfigFile
			if json.Unmarshal(data, &cfg) == nil {
				ctx.ConfigPath = candidate
				// A jsx setting forces the TSX grammar for .ts files too,
				// matching how the checker would parse the project.
				if cfg.CompilerOptions.JSX != "" && ctx.Dialect == DialectTypeScript {
					ctx.Dialect = DialectTSX
				}
			}
			return ctx
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ctx
		}
		dir = parent
	}
}

// dialectForExtension maps a file extension to its default dialect.
func dialectForExtension(filePath string) Dialect {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".tsx", ".jsx":
		return DialectTSX
	case ".js", ".mjs", ".cjs":
		return DialectJavaScript
	default:
		return DialectTypeScript
	}
}

// resolveType applies the context's resolver with syntactic fallback.
func (c *ProjectContext) resolveType(filePath string, offset uint, annotation string) string {
	if c == nil || c.Resolver == nil {
		return annotation
	}
	resolved, err := c.Resolver.ResolveType(filePath, offset, annotation)
	if err != nil {
		return annotation
	}
	return resolved
}
