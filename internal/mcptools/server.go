package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewCodeGraphMCPServer creates an MCP server with all 4 code graph tools
// registered.
func NewCodeGraphMCPServer(svc *CodeGraphService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "codegraph",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "build_graph",
		Description: "Index a repository and build the code property graph. Walks the file tree, parses TypeScript and JavaScript files using tree-sitter, and stores files, classes, functions, and variables with containment and import edges.",
	}, svc.BuildGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_structure",
		Description: "Look up a function, class, or file by name and return its neighborhood subgraph: containing file, siblings, and related declarations.",
	}, svc.QueryStructure)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "trace_dependencies",
		Description: "Traverse import edges upstream or downstream from a file. Returns the dependency subgraph up to the specified depth.",
	}, svc.TraceDependencies)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_error_paths",
		Description: "Find error definitions and return the functions that throw them and the handlers they route to. Optionally filter by name or message substring, throwing function, or repository; with no filter every error definition is returned.",
	}, svc.FindErrorPaths)

	return server
}

// RunMCPServer starts an HTTP server exposing the code graph MCP tools.
func RunMCPServer(ctx context.Context, svc *CodeGraphService, addr string) error {
	server := NewCodeGraphMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
