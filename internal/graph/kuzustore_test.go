//go:build cgo

package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestKuzuStore creates a fresh connected in-memory KuzuStore and
// registers a cleanup to close it.
func newTestKuzuStore(t *testing.T) *KuzuStore {
	t.Helper()
	s := NewKuzuStore()
	require.NoError(t, s.Connect(context.Background()), "Connect should not fail")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestKuzuStore_ConnectIdempotent(t *testing.T) {
	s := newTestKuzuStore(t)
	require.NoError(t, s.Connect(context.Background()), "second Connect should be a no-op")
}

func TestKuzuStore_NotConnected(t *testing.T) {
	s := NewKuzuStore()
	_, err := s.GetNode(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrNotConnected))
}

func TestKuzuStore_NodeRoundTrip(t *testing.T) {
	s := newTestKuzuStore(t)
	ctx := context.Background()

	node := Node{
		ID:   "n1",
		Kind: NodeKindClass,
		Name: "UserService",
		Properties: map[string]any{
			PropIsExported: true,
			PropSuperClass: "BaseService",
		},
	}
	require.NoError(t, s.AddNode(ctx, node))

	got, err := s.GetNode(ctx, "n1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, node.Kind, got.Kind)
	assert.Equal(t, node.Name, got.Name)
	assert.Equal(t, true, got.Properties[PropIsExported])
	assert.Equal(t, "BaseService", got.Properties[PropSuperClass])

	missing, err := s.GetNode(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing, "absent id should be (nil, nil)")
}

func TestKuzuStore_EdgeRoundTrip(t *testing.T) {
	s := newTestKuzuStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddNodes(ctx, []Node{
		{ID: "f1", Kind: NodeKindFile, Name: "a.ts"},
		{ID: "f2", Kind: NodeKindFile, Name: "b.ts"},
	}))
	edge := Edge{
		ID:       "e1",
		Kind:     EdgeKindImports,
		SourceID: "f1",
		TargetID: "f2",
		Properties: map[string]any{
			PropImportName: "helper",
			PropIsDefault:  false,
		},
	}
	require.NoError(t, s.AddEdge(ctx, edge))

	got, err := s.GetEdge(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "f1", got.SourceID)
	assert.Equal(t, "f2", got.TargetID)
	assert.Equal(t, "helper", got.Properties[PropImportName])

	between, err := s.GetEdgesBetween(ctx, "f2", "f1")
	require.NoError(t, err)
	assert.Len(t, between, 1, "orientation should not matter")

	out, err := s.GetOutgoingEdges(ctx, "f1", EdgeKindImports)
	require.NoError(t, err)
	assert.Len(t, out, 1)

	in, err := s.GetIncomingEdges(ctx, "f2")
	require.NoError(t, err)
	assert.Len(t, in, 1)
}

func TestKuzuStore_Subgraph(t *testing.T) {
	s := newTestKuzuStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddNodes(ctx, []Node{
		{ID: "r", Kind: NodeKindRepository, Name: "repo"},
		{ID: "f1", Kind: NodeKindFile, Name: "a.ts"},
		{ID: "f2", Kind: NodeKindFile, Name: "b.ts"},
	}))
	require.NoError(t, s.AddEdges(ctx, []Edge{
		{ID: "c1", Kind: EdgeKindContains, SourceID: "r", TargetID: "f1"},
		{ID: "i1", Kind: EdgeKindImports, SourceID: "f1", TargetID: "f2"},
	}))

	g, err := s.GetSubgraph(ctx, "f1", 1, TraversalOptions{})
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 2)

	g, err = s.GetSubgraph(ctx, "f1", 1, TraversalOptions{
		EdgeKinds: []EdgeKind{EdgeKindImports},
		Direction: DirectionOutgoing,
	})
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)

	g, err = s.GetSubgraph(ctx, "ghost", 2, TraversalOptions{})
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
}

func TestKuzuStore_ClearAllAndStats(t *testing.T) {
	s := newTestKuzuStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddNodes(ctx, []Node{
		{ID: "f1", Kind: NodeKindFile, Name: "a.ts"},
		{ID: "f2", Kind: NodeKindFile, Name: "b.ts"},
	}))
	require.NoError(t, s.AddEdge(ctx, Edge{
		ID: "i1", Kind: EdgeKindImports, SourceID: "f1", TargetID: "f2",
	}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.NodeCount)
	assert.Equal(t, 1, stats.EdgeCount)
	assert.Equal(t, 2, stats.NodesByKind[NodeKindFile])

	require.NoError(t, s.ClearAll(ctx))
	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.NodeCount)
	assert.Equal(t, 0, stats.EdgeCount)
}

func TestKuzuStore_FileBacked(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/graphdb"
	ctx := context.Background()

	s := NewKuzuFileStore(path)
	require.NoError(t, s.Connect(ctx))
	require.NoError(t, s.AddNode(ctx, Node{ID: "n1", Kind: NodeKindFile, Name: "a.ts"}))
	require.NoError(t, s.Close())

	// Reopen and read back.
	s2 := NewKuzuFileStore(path)
	require.NoError(t, s2.Connect(ctx))
	t.Cleanup(func() { _ = s2.Close() })

	got, err := s2.GetNode(ctx, "n1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a.ts", got.Name)
}
