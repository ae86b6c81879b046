package mcptools

import "github.com/probehq/codegraph/internal/graph"

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// BuildGraphInput is the input for the build_graph MCP tool.
type BuildGraphInput struct {
	RepoPath    string   `json:"repoPath" jsonschema:"the absolute path to the repository to index"`
	RepoName    string   `json:"repoName,omitempty" jsonschema:"repository name for the root node (default: directory basename)"`
	ExcludeDirs []string `json:"excludeDirs,omitempty" jsonschema:"directories to exclude from indexing (e.g. node_modules, dist)"`
}

// BuildGraphOutput is the result of the build_graph MCP tool.
type BuildGraphOutput struct {
	Stats    graph.BuildStats `json:"stats"`
	Warnings []string         `json:"warnings,omitempty"`
}

// QueryStructureInput is the input for the query_structure MCP tool.
type QueryStructureInput struct {
	FunctionName string `json:"functionName,omitempty" jsonschema:"function or method name to look up (takes precedence over className and filePath)"`
	ClassName    string `json:"className,omitempty" jsonschema:"class name to look up"`
	FilePath     string `json:"filePath,omitempty" jsonschema:"file path to look up"`
	Depth        int    `json:"depth,omitempty" jsonschema:"neighborhood traversal depth (default: 2)"`
}

// QueryStructureOutput is the result of the query_structure MCP tool.
type QueryStructureOutput struct {
	Graph      *graph.Graph `json:"graph"`
	Candidates []graph.Node `json:"candidates,omitempty"`
}

// TraceDependenciesInput is the input for the trace_dependencies MCP tool.
type TraceDependenciesInput struct {
	FilePath  string   `json:"filePath" jsonschema:"path of the file to trace"`
	Direction string   `json:"direction,omitempty" jsonschema:"upstream (files importing it), downstream (files it imports), or both. Default: both"`
	EdgeKinds []string `json:"edgeKinds,omitempty" jsonschema:"edge kinds to follow (default: IMPORTS and DEPENDS_ON)"`
	MaxDepth  int      `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 3)"`
}

// TraceDependenciesOutput is the result of the trace_dependencies MCP tool.
type TraceDependenciesOutput struct {
	Graph *graph.Graph `json:"graph"`
}

// FindErrorPathsInput is the input for the find_error_paths MCP tool. All
// fields are optional filters; an empty input returns every error
// definition with its throw and handle sites.
type FindErrorPathsInput struct {
	ErrorType    string `json:"errorType,omitempty" jsonschema:"substring matched against error definition names and messages"`
	FunctionName string `json:"functionName,omitempty" jsonschema:"restrict matches to error definitions thrown from this function"`
	Repository   string `json:"repository,omitempty" jsonschema:"restrict matches to error definitions contained in this repository"`
}

// FindErrorPathsOutput is the result of the find_error_paths MCP tool.
type FindErrorPathsOutput struct {
	Graph *graph.Graph `json:"graph"`
}
