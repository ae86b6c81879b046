//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probehq/codegraph/internal/export"
	"github.com/probehq/codegraph/internal/graph"
)

// TestIndexAndQuery_E2E runs the full flow against the TypeScript fixture
// project: walk the tree, build the graph, answer all three query shapes,
// and export the result.
func TestIndexAndQuery_E2E(t *testing.T) {
	ctx := context.Background()
	repoRoot := filepath.Join("..", "..", "testdata", "fixtures", "ts_project")

	var files []string
	err := filepath.WalkDir(repoRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs":
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, files)

	store, err := graph.OpenStore(":memory:")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Connect(ctx))

	assembler := graph.NewAssembler(store, graph.NewTreeSitterExtractor())
	result, err := assembler.Build(ctx, files, "ts_project")
	require.NoError(t, err)
	assert.Equal(t, 5, result.Stats.FilesProcessed)
	assert.Equal(t, 1, result.Stats.FilesFailed, "broken.ts should fail without aborting the build")

	engine := graph.NewEngine(store)

	// Structure lookup.
	structure, err := engine.QueryStructure(ctx, graph.StructureQuery{ClassName: "User"})
	require.NoError(t, err)
	assert.NotEmpty(t, structure.Nodes)

	// Dependency trace.
	deps, err := engine.TraceDependencies(ctx, graph.DependencyQuery{
		FilePath:  "index.ts",
		Direction: "downstream",
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(deps.Edges), 3, "index.ts imports three local files")

	// Error paths over a seeded error definition.
	require.NoError(t, store.AddNode(ctx, graph.Node{
		ID: "err-1", Kind: graph.NodeKindErrorDefinition, Name: "UserNotFoundError",
	}))
	errs, err := engine.FindErrorPaths(ctx, graph.ErrorPathQuery{ErrorType: "usernotfound"})
	require.NoError(t, err)
	assert.Len(t, errs.Nodes, 1)

	// Export round-trip.
	snapshot, err := export.ExportGraph(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "ts_project", snapshot.Repository)
	assert.Len(t, snapshot.Nodes, result.Stats.NodesCreated+1) // +1 seeded error def
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	diagram, err := export.GenerateMermaid(ctx, store)
	require.NoError(t, err)
	assert.Contains(t, diagram, "graph TD")
	assert.Contains(t, diagram, "-->")
}
