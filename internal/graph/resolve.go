package graph

import (
	"path/filepath"
	"strings"
)

// importResolver maps raw import specifiers to file paths within the current
// build's file set. Only relative imports ("./x", "../x") resolve; package
// imports are outside the graph and stay unresolved. Built once per build
// from the set of parsed file paths; no filesystem I/O.
type importResolver struct {
	fileSet map[string]bool
}

// ecmaExtensions are the probe suffixes tried when a relative import omits
// the extension or names a directory.
var ecmaExtensions = []string{
	".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs",
	"/index.ts", "/index.tsx", "/index.js",
}

func newImportResolver(filePaths []string) *importResolver {
	r := &importResolver{fileSet: make(map[string]bool, len(filePaths))}
	for _, f := range filePaths {
		r.fileSet[f] = true
	}
	return r
}

// Resolve rewrites a relative import specifier into the path of a file in
// the current build. Returns false for non-relative specifiers and for
// relative specifiers whose target is not part of the build.
func (r *importResolver) Resolve(importPath, sourceFile string) (string, bool) {
	if !strings.HasPrefix(importPath, "./") && !strings.HasPrefix(importPath, "../") {
		return "", false
	}
	base := filepath.Clean(filepath.Join(filepath.Dir(sourceFile), importPath))
	return r.probeFile(base)
}

// probeFile checks basePath and each candidate extension against the known
// file set.
func (r *importResolver) probeFile(basePath string) (string, bool) {
	if r.fileSet[basePath] {
		return basePath, true
	}
	for _, ext := range ecmaExtensions {
		candidate := basePath + ext
		if r.fileSet[candidate] {
			return candidate, true
		}
	}
	return "", false
}

// exportIndex maps exported symbol names to declaration node IDs, scoped per
// source file so same-named exports in different files never collide. Passed
// explicitly through the assembler's cross-file pass.
type exportIndex struct {
	byFile map[string]map[string]string // filePath -> export name -> node ID
}

func newExportIndex() *exportIndex {
	return &exportIndex{byFile: make(map[string]map[string]string)}
}

// Add records an exported symbol for a file. The first declaration of a name
// within one file wins; later shadows are ignored.
func (x *exportIndex) Add(filePath, name, nodeID string) {
	if name == "" {
		return
	}
	m, ok := x.byFile[filePath]
	if !ok {
		m = make(map[string]string)
		x.byFile[filePath] = m
	}
	if _, exists := m[name]; !exists {
		m[name] = nodeID
	}
}

// Lookup finds the node ID of an export in a specific file.
func (x *exportIndex) Lookup(filePath, name string) (string, bool) {
	m, ok := x.byFile[filePath]
	if !ok {
		return "", false
	}
	id, ok := m[name]
	return id, ok
}
