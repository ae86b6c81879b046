package graph

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExtractor serves canned FileRecords keyed by path.
type stubExtractor struct {
	records map[string]*FileRecord
	errs    map[string]error
}

func (s *stubExtractor) Extract(_ context.Context, _ []byte, filePath string) (*FileRecord, error) {
	if err, ok := s.errs[filePath]; ok {
		return nil, err
	}
	rec, ok := s.records[filePath]
	if !ok {
		return nil, fmt.Errorf("no record for %s", filePath)
	}
	return rec, nil
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

func testRecords() map[string]*FileRecord {
	return map[string]*FileRecord{
		"src/models/user.ts": {
			FilePath: "src/models/user.ts",
			Language: "typescript",
			Exports: []ExportRecord{
				{Name: "User"},
				{Name: "DEFAULT_ROLE"},
			},
			Classes: []ClassRecord{{
				Name:       "User",
				IsExported: true,
				Methods: []MethodRecord{
					{Name: "displayName", ReturnType: "string"},
				},
				Range: Range{StartByte: 10, EndByte: 200},
			}},
			Variables: []VariableRecord{{
				Name:       "DEFAULT_ROLE",
				IsConst:    true,
				IsExported: true,
			}},
		},
		"src/app.ts": {
			FilePath: "src/app.ts",
			Language: "typescript",
			Imports: []ImportRecord{
				{Name: "User", Path: "./models/user"},
				{Name: "missing", Path: "./missing", IsDefault: true},
				{Name: "lodash", Path: "lodash"},
			},
			Functions: []FunctionRecord{{
				Name:    "main",
				IsAsync: true,
			}},
		},
	}
}

func buildTestGraph(t *testing.T, extractor Extractor, files []string) (*MemStore, *BuildResult) {
	t.Helper()
	store := connectedMemStore(t)
	a := NewAssembler(store, extractor,
		withReadFile(func(string) ([]byte, error) { return nil, nil }),
		WithIDGenerator(sequentialIDs()),
		WithWorkers(2))
	result, err := a.Build(context.Background(), files, "myrepo")
	require.NoError(t, err, "Build")
	return store, result
}

func TestAssemblerBuild(t *testing.T) {
	ext := &stubExtractor{records: testRecords()}
	store, result := buildTestGraph(t, ext, []string{"src/models/user.ts", "src/app.ts"})
	ctx := context.Background()

	assert.Equal(t, 2, result.Stats.FilesProcessed)
	assert.Equal(t, 0, result.Stats.FilesFailed)

	// Repository, 2 directories, 2 files, class, method, variable, function.
	assert.Equal(t, 9, result.Stats.NodesCreated)
	// 8 Contains edges plus 1 resolved Imports edge. The "./missing" and
	// "lodash" imports must not become edges.
	assert.Equal(t, 9, result.Stats.EdgesCreated)

	repos, err := store.GetNodesByKind(ctx, NodeKindRepository, 0)
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "myrepo", repos[0].Name)

	imports, err := store.GetEdgesByKind(ctx, EdgeKindImports, 0)
	require.NoError(t, err)
	require.Len(t, imports, 1)
	edge := imports[0]
	assert.Equal(t, "User", edge.Properties[PropImportName])
	assert.Equal(t, false, edge.Properties[PropIsDefault])

	// The edge connects File nodes, and its symbolId names the class node in
	// the target file.
	src, err := store.GetNode(ctx, edge.SourceID)
	require.NoError(t, err)
	require.NotNil(t, src)
	assert.Equal(t, NodeKindFile, src.Kind)
	assert.Equal(t, "app.ts", src.Name)

	tgt, err := store.GetNode(ctx, edge.TargetID)
	require.NoError(t, err)
	require.NotNil(t, tgt)
	assert.Equal(t, NodeKindFile, tgt.Kind)
	assert.Equal(t, "user.ts", tgt.Name)

	symbolID, _ := edge.Properties[PropSymbolID].(string)
	symbol, err := store.GetNode(ctx, symbolID)
	require.NoError(t, err)
	require.NotNil(t, symbol)
	assert.Equal(t, NodeKindClass, symbol.Kind)
	assert.Equal(t, "User", symbol.Name)
}

func TestAssemblerGraphWellFormed(t *testing.T) {
	ext := &stubExtractor{records: testRecords()}
	_, result := buildTestGraph(t, ext, []string{"src/models/user.ts", "src/app.ts"})

	ids := make(map[string]bool, len(result.Graph.Nodes))
	for _, n := range result.Graph.Nodes {
		assert.False(t, ids[n.ID], "duplicate node id %s", n.ID)
		ids[n.ID] = true
	}

	containsParents := make(map[string]int)
	for _, e := range result.Graph.Edges {
		assert.True(t, ids[e.SourceID] && ids[e.TargetID],
			"dangling edge %s: %s -> %s", e.ID, e.SourceID, e.TargetID)
		if e.Kind == EdgeKindContains {
			containsParents[e.TargetID]++
		}
	}
	// Containment is a forest: at most one parent per node.
	for id, count := range containsParents {
		assert.LessOrEqual(t, count, 1, "node %s Contains parents", id)
	}
}

func TestAssemblerDirectoryDedup(t *testing.T) {
	records := map[string]*FileRecord{
		"src/a.ts": {FilePath: "src/a.ts", Language: "typescript"},
		"src/b.ts": {FilePath: "src/b.ts", Language: "typescript"},
	}
	ext := &stubExtractor{records: records}
	store, _ := buildTestGraph(t, ext, []string{"src/a.ts", "src/b.ts"})

	dirs, err := store.GetNodesByKind(context.Background(), NodeKindDirectory, 0)
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	assert.Equal(t, "src", dirs[0].Properties[PropPath])
}

func TestAssemblerPartialFailure(t *testing.T) {
	ext := &stubExtractor{
		records: testRecords(),
		errs:    map[string]error{"src/broken.ts": errors.New("parse error")},
	}
	store, result := buildTestGraph(t, ext,
		[]string{"src/models/user.ts", "src/broken.ts", "src/app.ts"})

	assert.Equal(t, 2, result.Stats.FilesProcessed)
	assert.Equal(t, 1, result.Stats.FilesFailed)
	require.Len(t, result.FileErrors, 1)
	assert.Equal(t, "src/broken.ts", result.FileErrors[0].FilePath)

	// The surviving files are fully assembled.
	files, err := store.GetNodesByKind(context.Background(), NodeKindFile, 0)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestAssemblerRebuildReplaces(t *testing.T) {
	ext := &stubExtractor{records: testRecords()}
	store := connectedMemStore(t)
	ctx := context.Background()

	a := NewAssembler(store, ext,
		withReadFile(func(string) ([]byte, error) { return nil, nil }),
		WithWorkers(1))

	first, err := a.Build(ctx, []string{"src/models/user.ts", "src/app.ts"}, "myrepo")
	require.NoError(t, err)
	second, err := a.Build(ctx, []string{"src/models/user.ts", "src/app.ts"}, "myrepo")
	require.NoError(t, err)

	assert.Equal(t, first.Stats.NodesCreated, second.Stats.NodesCreated)
	assert.Equal(t, first.Stats.EdgesCreated, second.Stats.EdgesCreated)

	// The store holds exactly one build's worth of data.
	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.Stats.NodesCreated, stats.NodeCount)
	assert.Equal(t, second.Stats.EdgesCreated, stats.EdgeCount)
}

func TestAssemblerReadFailureIsFileError(t *testing.T) {
	ext := &stubExtractor{records: testRecords()}
	store := connectedMemStore(t)

	a := NewAssembler(store, ext,
		withReadFile(func(path string) ([]byte, error) {
			if path == "src/app.ts" {
				return nil, errors.New("permission denied")
			}
			return nil, nil
		}))

	result, err := a.Build(context.Background(), []string{"src/models/user.ts", "src/app.ts"}, "myrepo")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.FilesFailed)
	assert.Len(t, result.FileErrors, 1)
}
