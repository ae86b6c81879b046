package mcptools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/probehq/codegraph/internal/graph"
)

// sourceExtensions lists the file extensions the indexer picks up while
// walking a repository.
var sourceExtensions = map[string]bool{
	".ts":  true,
	".tsx": true,
	".js":  true,
	".jsx": true,
	".mjs": true,
	".cjs": true,
}

// CodeGraphService holds the assembler and query engine used by MCP tool
// handlers.
type CodeGraphService struct {
	assembler *graph.Assembler
	engine    *graph.Engine
	excludes  []string
}

// NewCodeGraphService creates a CodeGraphService over one store, shared by
// the assembler and the query engine.
func NewCodeGraphService(assembler *graph.Assembler, engine *graph.Engine) *CodeGraphService {
	return &CodeGraphService{assembler: assembler, engine: engine}
}

// SetExcludes sets the default directory names skipped while walking a
// repository. Per-call excludeDirs are added on top.
func (s *CodeGraphService) SetExcludes(dirs []string) {
	s.excludes = dirs
}

// BuildGraph walks a repository, parses its source files, and replaces the
// graph store's contents with the assembled graph. Returns build statistics
// plus per-file parse warnings.
func (s *CodeGraphService) BuildGraph(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input BuildGraphInput,
) (*mcp.CallToolResult, BuildGraphOutput, error) {
	if input.RepoPath == "" {
		return nil, BuildGraphOutput{}, fmt.Errorf("repoPath is required")
	}

	info, err := os.Stat(input.RepoPath)
	if err != nil {
		return nil, BuildGraphOutput{}, fmt.Errorf("cannot access repoPath: %w", err)
	}
	if !info.IsDir() {
		return nil, BuildGraphOutput{}, fmt.Errorf("repoPath is not a directory: %s", input.RepoPath)
	}

	repoName := input.RepoName
	if repoName == "" {
		repoName = filepath.Base(input.RepoPath)
	}

	excludeSet := make(map[string]bool, len(s.excludes)+len(input.ExcludeDirs))
	for _, d := range s.excludes {
		excludeSet[d] = true
	}
	for _, d := range input.ExcludeDirs {
		excludeSet[d] = true
	}

	var files []string
	walkErr := filepath.WalkDir(input.RepoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || excludeSet[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if sourceExtensions[filepath.Ext(path)] {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, BuildGraphOutput{}, fmt.Errorf("walk: %w", walkErr)
	}

	result, err := s.assembler.Build(ctx, files, repoName)
	if err != nil {
		return nil, BuildGraphOutput{}, fmt.Errorf("build graph: %w", err)
	}

	out := BuildGraphOutput{Stats: result.Stats}
	for _, fe := range result.FileErrors {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %v", fe.FilePath, fe.Err))
	}
	return nil, out, nil
}

// QueryStructure looks up a function, class, or file by name and returns its
// neighborhood subgraph. An ambiguous name is not an error at this layer:
// the candidates come back so the caller can refine the query.
func (s *CodeGraphService) QueryStructure(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryStructureInput,
) (*mcp.CallToolResult, QueryStructureOutput, error) {
	if input.FunctionName == "" && input.ClassName == "" && input.FilePath == "" {
		return nil, QueryStructureOutput{}, fmt.Errorf("one of functionName, className, or filePath is required")
	}

	g, err := s.engine.QueryStructure(ctx, graph.StructureQuery{
		FunctionName: input.FunctionName,
		ClassName:    input.ClassName,
		FilePath:     input.FilePath,
		Depth:        input.Depth,
	})
	if err != nil {
		var ambiguous *graph.AmbiguousError
		if errors.As(err, &ambiguous) {
			return nil, QueryStructureOutput{
				Graph:      graph.EmptyGraph(),
				Candidates: ambiguous.Matches,
			}, nil
		}
		return nil, QueryStructureOutput{}, fmt.Errorf("query structure: %w", err)
	}
	return nil, QueryStructureOutput{Graph: g}, nil
}

// TraceDependencies returns the import neighborhood of a file.
func (s *CodeGraphService) TraceDependencies(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TraceDependenciesInput,
) (*mcp.CallToolResult, TraceDependenciesOutput, error) {
	if input.FilePath == "" {
		return nil, TraceDependenciesOutput{}, fmt.Errorf("filePath is required")
	}

	kinds := make([]graph.EdgeKind, 0, len(input.EdgeKinds))
	for _, k := range input.EdgeKinds {
		kinds = append(kinds, graph.EdgeKind(k))
	}
	g, err := s.engine.TraceDependencies(ctx, graph.DependencyQuery{
		FilePath:  input.FilePath,
		Direction: input.Direction,
		EdgeKinds: kinds,
		MaxDepth:  input.MaxDepth,
	})
	if err != nil {
		return nil, TraceDependenciesOutput{}, fmt.Errorf("trace dependencies: %w", err)
	}
	return nil, TraceDependenciesOutput{Graph: g}, nil
}

// FindErrorPaths returns matching error definitions with their throw sites
// and handlers. An empty input matches every error definition.
func (s *CodeGraphService) FindErrorPaths(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FindErrorPathsInput,
) (*mcp.CallToolResult, FindErrorPathsOutput, error) {
	g, err := s.engine.FindErrorPaths(ctx, graph.ErrorPathQuery{
		ErrorType:    input.ErrorType,
		FunctionName: input.FunctionName,
		Repository:   input.Repository,
	})
	if err != nil {
		return nil, FindErrorPathsOutput{}, fmt.Errorf("find error paths: %w", err)
	}
	return nil, FindErrorPathsOutput{Graph: g}, nil
}
