package graph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// FileError records a single file that failed to parse. Per-file failures
// are absorbed at the assembler boundary: they are logged, reported in the
// BuildResult, and the build continues with the remaining files.
type FileError struct {
	FilePath string
	Err      error
}

// BuildStats summarizes one build.
type BuildStats struct {
	FilesProcessed int `json:"filesProcessed"`
	FilesFailed    int `json:"filesFailed"`
	NodesCreated   int `json:"nodesCreated"`
	EdgesCreated   int `json:"edgesCreated"`
}

// BuildResult carries the built graph plus the per-file warnings the caller
// should surface as build-summary output.
type BuildResult struct {
	Graph      *Graph
	FileErrors []FileError
	Stats      BuildStats
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithWorkers sets the parse worker pool size. Values <= 0 fall back to
// runtime.NumCPU().
func WithWorkers(n int) AssemblerOption {
	return func(a *Assembler) { a.workers = n }
}

// WithLogger sets the assembler's logger.
func WithLogger(logger *slog.Logger) AssemblerOption {
	return func(a *Assembler) { a.logger = logger }
}

// WithIDGenerator replaces the identifier generator. Tests use a sequential
// generator for deterministic output.
func WithIDGenerator(gen func() string) AssemblerOption {
	return func(a *Assembler) { a.newID = gen }
}

// withReadFile replaces file reading; used by tests to feed in-memory
// sources.
func withReadFile(fn func(string) ([]byte, error)) AssemblerOption {
	return func(a *Assembler) { a.readFile = fn }
}

// Assembler converts per-file extraction records into graph nodes and edges
// and writes them to the store. Files are parsed by a bounded worker pool
// (the extractor has no shared mutable state); assembly and identifier
// generation stay on a single goroutine so IDs are unique without locking;
// the clear-then-write store phase runs through one write path so the full
// rebuild is never half-applied by this process.
type Assembler struct {
	store     Store
	extractor Extractor
	logger    *slog.Logger
	workers   int
	newID     func() string
	readFile  func(string) ([]byte, error)
}

// NewAssembler creates an Assembler writing through store and parsing with
// extractor.
func NewAssembler(store Store, extractor Extractor, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		store:     store,
		extractor: extractor,
		logger:    slog.Default(),
		workers:   runtime.NumCPU(),
		newID:     uuid.NewString,
		readFile:  os.ReadFile,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.workers <= 0 {
		a.workers = runtime.NumCPU()
	}
	return a
}

// BuildGraph rebuilds the whole graph from the given files and returns it.
// This is the facade the tool layer calls; Build exposes the per-file
// warnings as well.
func (a *Assembler) BuildGraph(ctx context.Context, filePaths []string, repositoryName string) (*Graph, error) {
	result, err := a.Build(ctx, filePaths, repositoryName)
	if err != nil {
		return nil, err
	}
	return result.Graph, nil
}

// Build parses every file, assembles nodes and edges, resolves cross-file
// imports, and replaces the store's contents with the new graph.
func (a *Assembler) Build(ctx context.Context, filePaths []string, repositoryName string) (*BuildResult, error) {
	result := &BuildResult{Graph: EmptyGraph()}

	// Phase 1: parse files with a bounded worker pool. Each record slot is
	// written by exactly one goroutine.
	records := make([]*FileRecord, len(filePaths))
	parseErrs := make([]error, len(filePaths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, path := range filePaths {
		g.Go(func() error {
			source, err := a.readFile(path)
			if err != nil {
				parseErrs[i] = fmt.Errorf("read file: %w", err)
				return nil
			}
			rec, err := a.extractor.Extract(gctx, source, path)
			if err != nil {
				parseErrs[i] = err
				return nil
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var parsed []*FileRecord
	for i, rec := range records {
		if parseErrs[i] != nil {
			a.logger.Warn("skipping file after parse failure",
				slog.String("file", filePaths[i]),
				slog.String("error", parseErrs[i].Error()))
			result.FileErrors = append(result.FileErrors, FileError{
				FilePath: filePaths[i],
				Err:      parseErrs[i],
			})
			result.Stats.FilesFailed++
			continue
		}
		parsed = append(parsed, rec)
		result.Stats.FilesProcessed++
	}

	// Phase 2: single-threaded assembly. The assembler owns all identifier
	// generation and the per-file export index.
	st := &assemblyState{
		graph:   result.Graph,
		exports: newExportIndex(),
		fileIDs: make(map[string]string),
		dirIDs:  make(map[string]string),
	}
	st.repoID = st.addNode(a, NodeKindRepository, repositoryName, nil)

	for _, rec := range parsed {
		a.assembleFile(st, rec)
	}

	// Phase 3: cross-file resolution, after every file is parsed.
	a.resolveImports(st, parsed)

	result.Stats.NodesCreated = len(result.Graph.Nodes)
	result.Stats.EdgesCreated = len(result.Graph.Edges)

	// Phase 4: full rebuild. Clear prior state, then write the new graph.
	// Writes are per-entity; a failure here can leave the store partially
	// written (store contract).
	if err := a.store.ClearAll(ctx); err != nil {
		return nil, fmt.Errorf("clear store: %w", err)
	}
	if err := a.store.AddNodes(ctx, result.Graph.Nodes); err != nil {
		return nil, fmt.Errorf("write nodes: %w", err)
	}
	if err := a.store.AddEdges(ctx, result.Graph.Edges); err != nil {
		return nil, fmt.Errorf("write edges: %w", err)
	}

	return result, nil
}

// assemblyState holds the mutable state of a single build.
type assemblyState struct {
	graph   *Graph
	exports *exportIndex
	repoID  string
	dirIDs  map[string]string // directory path -> node ID
	fileIDs map[string]string // file path -> node ID
}

func (st *assemblyState) addNode(a *Assembler, kind NodeKind, name string, props map[string]any) string {
	id := a.newID()
	st.graph.Nodes = append(st.graph.Nodes, Node{ID: id, Kind: kind, Name: name, Properties: props})
	return id
}

func (st *assemblyState) addEdge(a *Assembler, kind EdgeKind, sourceID, targetID string, props map[string]any) {
	st.graph.Edges = append(st.graph.Edges, Edge{
		ID:         a.newID(),
		Kind:       kind,
		SourceID:   sourceID,
		TargetID:   targetID,
		Properties: props,
	})
}

// assembleFile synthesizes the Repository/Directory/File hierarchy for one
// file and materializes its declarations. Directory nodes are deduplicated
// by path within the build, so the Contains edges form a forest rooted at
// the single Repository node.
func (a *Assembler) assembleFile(st *assemblyState, rec *FileRecord) {
	dir := filepath.Dir(rec.FilePath)
	dirID, ok := st.dirIDs[dir]
	if !ok {
		dirID = st.addNode(a, NodeKindDirectory, filepath.Base(dir), map[string]any{
			PropPath: dir,
		})
		st.dirIDs[dir] = dirID
		st.addEdge(a, EdgeKindContains, st.repoID, dirID, nil)
	}

	fileID := st.addNode(a, NodeKindFile, filepath.Base(rec.FilePath), map[string]any{
		PropPath:     rec.FilePath,
		PropLanguage: rec.Language,
	})
	st.fileIDs[rec.FilePath] = fileID
	st.addEdge(a, EdgeKindContains, dirID, fileID, nil)

	// Default-ness by name, for export bookkeeping on declarations.
	defaultExports := make(map[string]bool, len(rec.Exports))
	for _, exp := range rec.Exports {
		if exp.IsDefault {
			defaultExports[exp.Name] = true
		}
	}

	for _, cls := range rec.Classes {
		props := map[string]any{
			PropStartByte:  cls.Range.StartByte,
			PropEndByte:    cls.Range.EndByte,
			PropIsExported: cls.IsExported,
		}
		if cls.SuperClass != "" {
			props[PropSuperClass] = cls.SuperClass
		}
		if len(cls.Interfaces) > 0 {
			props[PropInterfaces] = cls.Interfaces
		}
		classID := st.addNode(a, NodeKindClass, cls.Name, props)
		st.addEdge(a, EdgeKindContains, fileID, classID, nil)
		if cls.IsExported || defaultExports[cls.Name] {
			st.exports.Add(rec.FilePath, cls.Name, classID)
		}

		for _, m := range cls.Methods {
			methodProps := map[string]any{
				PropStartByte: m.Range.StartByte,
				PropEndByte:   m.Range.EndByte,
				PropIsAsync:   m.IsAsync,
				PropIsStatic:  m.IsStatic,
			}
			if m.ReturnType != "" {
				methodProps[PropReturnType] = m.ReturnType
			}
			if m.Visibility != "" {
				methodProps[PropVisibility] = m.Visibility
			}
			methodID := st.addNode(a, NodeKindMethod, m.Name, methodProps)
			st.addEdge(a, EdgeKindContains, classID, methodID, nil)
		}
	}

	for _, fn := range rec.Functions {
		props := map[string]any{
			PropStartByte:  fn.Range.StartByte,
			PropEndByte:    fn.Range.EndByte,
			PropIsAsync:    fn.IsAsync,
			PropIsExported: fn.IsExported,
		}
		if fn.ReturnType != "" {
			props[PropReturnType] = fn.ReturnType
		}
		fnID := st.addNode(a, NodeKindFunction, fn.Name, props)
		st.addEdge(a, EdgeKindContains, fileID, fnID, nil)
		if fn.IsExported || defaultExports[fn.Name] {
			st.exports.Add(rec.FilePath, fn.Name, fnID)
		}
	}

	for _, v := range rec.Variables {
		props := map[string]any{
			PropStartByte:  v.Range.StartByte,
			PropEndByte:    v.Range.EndByte,
			PropIsConst:    v.IsConst,
			PropIsExported: v.IsExported,
		}
		if v.Type != "" {
			props[PropType] = v.Type
		}
		varID := st.addNode(a, NodeKindVariable, v.Name, props)
		st.addEdge(a, EdgeKindContains, fileID, varID, nil)
		if v.IsExported || defaultExports[v.Name] {
			st.exports.Add(rec.FilePath, v.Name, varID)
		}
	}
}

// resolveImports runs the second pass: relative import specifiers are
// resolved against the build's file set and each resolved import becomes an
// Imports edge between File nodes, carrying the imported symbol's name and
// default-ness. Package imports stay unresolved by design.
func (a *Assembler) resolveImports(st *assemblyState, parsed []*FileRecord) {
	paths := make([]string, 0, len(parsed))
	for _, rec := range parsed {
		paths = append(paths, rec.FilePath)
	}
	resolver := newImportResolver(paths)

	for _, rec := range parsed {
		sourceFileID := st.fileIDs[rec.FilePath]
		for _, imp := range rec.Imports {
			target, ok := resolver.Resolve(imp.Path, rec.FilePath)
			if !ok {
				continue
			}
			targetFileID, ok := st.fileIDs[target]
			if !ok {
				continue
			}
			props := map[string]any{
				PropImportName: imp.Name,
				PropIsDefault:  imp.IsDefault,
			}
			// The export index is scoped per target file, so same-named
			// exports elsewhere in the build cannot satisfy this lookup.
			if symbolID, found := st.exports.Lookup(target, imp.Name); found {
				props[PropSymbolID] = symbolID
			}
			st.addEdge(a, EdgeKindImports, sourceFileID, targetFileID, props)
		}
	}
}
