package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queryFixture seeds a store with a small two-file project:
//
//	repo -> src -> {service.ts, util.ts}
//	service.ts contains class Service (method handle) and error def NotFoundError
//	util.ts contains function helper
//	service.ts IMPORTS util.ts
//	handle THROWS NotFoundError; NotFoundError HANDLED_BY helper
func queryFixture(t *testing.T) *MemStore {
	t.Helper()
	m := connectedMemStore(t)
	ctx := context.Background()

	nodes := []Node{
		{ID: "repo", Kind: NodeKindRepository, Name: "myrepo"},
		{ID: "src", Kind: NodeKindDirectory, Name: "src", Properties: map[string]any{PropPath: "src"}},
		{ID: "svc", Kind: NodeKindFile, Name: "service.ts", Properties: map[string]any{PropPath: "src/service.ts"}},
		{ID: "util", Kind: NodeKindFile, Name: "util.ts", Properties: map[string]any{PropPath: "src/util.ts"}},
		{ID: "cls", Kind: NodeKindClass, Name: "Service"},
		{ID: "mth", Kind: NodeKindMethod, Name: "handle"},
		{ID: "fn", Kind: NodeKindFunction, Name: "helper"},
		{ID: "errdef", Kind: NodeKindErrorDefinition, Name: "NotFoundError",
			Properties: map[string]any{PropMessage: "entity not found"}},
	}
	edges := []Edge{
		{ID: "c1", Kind: EdgeKindContains, SourceID: "repo", TargetID: "src"},
		{ID: "c2", Kind: EdgeKindContains, SourceID: "src", TargetID: "svc"},
		{ID: "c3", Kind: EdgeKindContains, SourceID: "src", TargetID: "util"},
		{ID: "c4", Kind: EdgeKindContains, SourceID: "svc", TargetID: "cls"},
		{ID: "c5", Kind: EdgeKindContains, SourceID: "cls", TargetID: "mth"},
		{ID: "c6", Kind: EdgeKindContains, SourceID: "util", TargetID: "fn"},
		{ID: "c7", Kind: EdgeKindContains, SourceID: "svc", TargetID: "errdef"},
		{ID: "i1", Kind: EdgeKindImports, SourceID: "svc", TargetID: "util"},
		{ID: "t1", Kind: EdgeKindThrows, SourceID: "mth", TargetID: "errdef"},
		{ID: "h1", Kind: EdgeKindHandledBy, SourceID: "errdef", TargetID: "fn"},
	}
	require.NoError(t, m.AddNodes(ctx, nodes))
	require.NoError(t, m.AddEdges(ctx, edges))
	return m
}

func nodeIDs(g *Graph) map[string]bool {
	out := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		out[n.ID] = true
	}
	return out
}

func TestQueryStructureByFunction(t *testing.T) {
	e := NewEngine(queryFixture(t))
	g, err := e.QueryStructure(context.Background(), StructureQuery{FunctionName: "handle", Depth: 1})
	require.NoError(t, err)
	ids := nodeIDs(g)
	assert.True(t, ids["mth"] && ids["cls"] && ids["errdef"], "nodes = %v", ids)
}

func TestQueryStructureByClass(t *testing.T) {
	e := NewEngine(queryFixture(t))
	g, err := e.QueryStructure(context.Background(), StructureQuery{ClassName: "Service", Depth: 1})
	require.NoError(t, err)
	ids := nodeIDs(g)
	assert.True(t, ids["cls"] && ids["svc"] && ids["mth"], "nodes = %v", ids)
}

func TestQueryStructureByFilePath(t *testing.T) {
	e := NewEngine(queryFixture(t))
	g, err := e.QueryStructure(context.Background(), StructureQuery{FilePath: "src/util.ts", Depth: 1})
	require.NoError(t, err)
	ids := nodeIDs(g)
	assert.True(t, ids["util"] && ids["fn"], "nodes = %v", ids)
}

func TestQueryStructurePrecedence(t *testing.T) {
	e := NewEngine(queryFixture(t))
	// functionName wins even when className is also given.
	g, err := e.QueryStructure(context.Background(), StructureQuery{
		FunctionName: "helper",
		ClassName:    "Service",
		Depth:        1,
	})
	require.NoError(t, err)
	ids := nodeIDs(g)
	assert.True(t, ids["fn"], "nodes = %v", ids)
	assert.False(t, ids["cls"], "nodes = %v", ids)
}

func TestQueryStructureNotFound(t *testing.T) {
	e := NewEngine(queryFixture(t))
	g, err := e.QueryStructure(context.Background(), StructureQuery{FunctionName: "nope"})
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
}

func TestQueryStructureAmbiguous(t *testing.T) {
	m := queryFixture(t)
	ctx := context.Background()
	require.NoError(t, m.AddNode(ctx, Node{ID: "fn2", Kind: NodeKindFunction, Name: "helper"}))

	e := NewEngine(m)
	_, err := e.QueryStructure(ctx, StructureQuery{FunctionName: "helper"})
	var ambiguous *AmbiguousError
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.Matches, 2)
}

func TestQueryStructureNoSelector(t *testing.T) {
	e := NewEngine(queryFixture(t))
	_, err := e.QueryStructure(context.Background(), StructureQuery{})
	require.Error(t, err)
}

func TestTraceDependenciesDownstream(t *testing.T) {
	e := NewEngine(queryFixture(t))
	g, err := e.TraceDependencies(context.Background(), DependencyQuery{
		FilePath:  "src/service.ts",
		Direction: "downstream",
	})
	require.NoError(t, err)
	ids := nodeIDs(g)
	assert.True(t, ids["svc"] && ids["util"], "nodes = %v", ids)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, EdgeKindImports, g.Edges[0].Kind)
}

func TestTraceDependenciesUpstream(t *testing.T) {
	e := NewEngine(queryFixture(t))

	g, err := e.TraceDependencies(context.Background(), DependencyQuery{
		FilePath:  "src/util.ts",
		Direction: "upstream",
	})
	require.NoError(t, err)
	ids := nodeIDs(g)
	assert.True(t, ids["util"] && ids["svc"], "nodes = %v", ids)

	// Upstream of a file nothing imports is just the file itself.
	g, err = e.TraceDependencies(context.Background(), DependencyQuery{
		FilePath:  "src/service.ts",
		Direction: "upstream",
	})
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
}

func TestTraceDependenciesEdgeKinds(t *testing.T) {
	e := NewEngine(queryFixture(t))
	g, err := e.TraceDependencies(context.Background(), DependencyQuery{
		FilePath:  "src/service.ts",
		Direction: "downstream",
		EdgeKinds: []EdgeKind{EdgeKindContains},
	})
	require.NoError(t, err)

	// With an explicit kind list the import edge is not followed.
	ids := nodeIDs(g)
	assert.False(t, ids["util"], "nodes = %v", ids)
	assert.True(t, ids["cls"] && ids["errdef"], "nodes = %v", ids)
	for _, edge := range g.Edges {
		assert.Equal(t, EdgeKindContains, edge.Kind)
	}
}

func TestTraceDependenciesUnknownFile(t *testing.T) {
	e := NewEngine(queryFixture(t))
	g, err := e.TraceDependencies(context.Background(), DependencyQuery{FilePath: "src/nope.ts"})
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
}

func TestTraceDependenciesBadDirection(t *testing.T) {
	e := NewEngine(queryFixture(t))
	_, err := e.TraceDependencies(context.Background(), DependencyQuery{
		FilePath:  "src/util.ts",
		Direction: "sideways",
	})
	require.Error(t, err)
}

func TestFindErrorPaths(t *testing.T) {
	e := NewEngine(queryFixture(t))
	g, err := e.FindErrorPaths(context.Background(), ErrorPathQuery{ErrorType: "notfound"})
	require.NoError(t, err)
	ids := nodeIDs(g)
	assert.True(t, ids["errdef"] && ids["mth"] && ids["fn"], "nodes = %v", ids)
	assert.Len(t, g.Edges, 2)
}

func TestFindErrorPathsByMessage(t *testing.T) {
	e := NewEngine(queryFixture(t))
	g, err := e.FindErrorPaths(context.Background(), ErrorPathQuery{ErrorType: "entity not"})
	require.NoError(t, err)
	assert.True(t, nodeIDs(g)["errdef"], "nodes = %+v", g.Nodes)
}

func TestFindErrorPathsNoFilter(t *testing.T) {
	e := NewEngine(queryFixture(t))
	ctx := context.Background()

	// A zero query matches every error definition with its paths.
	g, err := e.FindErrorPaths(ctx, ErrorPathQuery{})
	require.NoError(t, err)
	ids := nodeIDs(g)
	assert.True(t, ids["errdef"] && ids["mth"] && ids["fn"], "nodes = %v", ids)
	assert.Len(t, g.Edges, 2)

	// On a store with no error definitions it returns an empty graph, not
	// an error.
	empty := connectedMemStore(t)
	g, err = NewEngine(empty).FindErrorPaths(ctx, ErrorPathQuery{})
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
}

func TestFindErrorPathsByFunction(t *testing.T) {
	e := NewEngine(queryFixture(t))
	ctx := context.Background()

	g, err := e.FindErrorPaths(ctx, ErrorPathQuery{FunctionName: "handle"})
	require.NoError(t, err)
	assert.True(t, nodeIDs(g)["errdef"], "nodes = %+v", g.Nodes)

	// helper handles NotFoundError but never throws it.
	g, err = e.FindErrorPaths(ctx, ErrorPathQuery{FunctionName: "helper"})
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
}

func TestFindErrorPathsRepositoryFilter(t *testing.T) {
	e := NewEngine(queryFixture(t))
	ctx := context.Background()

	g, err := e.FindErrorPaths(ctx, ErrorPathQuery{ErrorType: "notfound", Repository: "myrepo"})
	require.NoError(t, err)
	assert.True(t, nodeIDs(g)["errdef"], "nodes = %+v", g.Nodes)

	g, err = e.FindErrorPaths(ctx, ErrorPathQuery{ErrorType: "notfound", Repository: "otherrepo"})
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
}

func TestFindErrorPathsNoMatch(t *testing.T) {
	e := NewEngine(queryFixture(t))
	g, err := e.FindErrorPaths(context.Background(), ErrorPathQuery{ErrorType: "timeout"})
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
}

func TestEngineReconnects(t *testing.T) {
	m := queryFixture(t)
	require.NoError(t, m.Close())

	// The probe fails on the closed store; the engine reconnects once and
	// the query proceeds.
	e := NewEngine(m)
	g, err := e.QueryStructure(context.Background(), StructureQuery{ClassName: "Service"})
	require.NoError(t, err, "QueryStructure after close")
	assert.NotEmpty(t, g.Nodes, "expected a non-empty neighborhood after reconnect")
}