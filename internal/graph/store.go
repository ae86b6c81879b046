package graph

import (
	"context"
	"errors"
	"io"
)

// ErrNotConnected is returned by every store operation invoked before a
// successful Connect (or after Close).
var ErrNotConnected = errors.New("graph store: not connected")

// TraversalOptions restricts a GetSubgraph expansion. The zero value means
// "all edge kinds, both directions".
type TraversalOptions struct {
	// EdgeKinds limits traversal to the given kinds. Empty means all kinds.
	EdgeKinds []EdgeKind

	// Direction makes edge orientation explicit. Empty defaults to
	// DirectionBoth, preserving the one-call "contains me / I contain"
	// behavior that callers rely on.
	Direction Direction
}

// normalized returns the options with defaults applied.
func (o TraversalOptions) normalized() TraversalOptions {
	if o.Direction == "" {
		o.Direction = DirectionBoth
	}
	return o
}

// matchesKind reports whether an edge kind passes the filter.
func (o TraversalOptions) matchesKind(kind EdgeKind) bool {
	if len(o.EdgeKinds) == 0 {
		return true
	}
	for _, k := range o.EdgeKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Store is the storage-agnostic persistence contract for the code graph.
// Implementations: KuzuStore (property graph database, production) and
// MemStore (testing). Writes are not batched or transactional: each AddNode
// and AddEdge persists independently, so a failure partway through a batch
// leaves the store partially written with no automatic rollback.
type Store interface {
	io.Closer

	// Connect establishes the backend connection. Idempotent: connecting an
	// already-connected store is a no-op. All other methods fail with
	// ErrNotConnected until Connect succeeds.
	Connect(ctx context.Context) error

	// ClearAll deletes every node and edge.
	ClearAll(ctx context.Context) error

	// Node operations. GetNode returns (nil, nil) when the id is absent.
	AddNode(ctx context.Context, node Node) error
	AddNodes(ctx context.Context, nodes []Node) error
	GetNode(ctx context.Context, id string) (*Node, error)
	GetNodesByKind(ctx context.Context, kind NodeKind, limit int) ([]Node, error)

	// Edge operations. GetEdge returns (nil, nil) when the id is absent.
	AddEdge(ctx context.Context, edge Edge) error
	AddEdges(ctx context.Context, edges []Edge) error
	GetEdge(ctx context.Context, id string) (*Edge, error)
	GetEdgesByKind(ctx context.Context, kind EdgeKind, limit int) ([]Edge, error)
	GetEdgesBetween(ctx context.Context, a, b string) ([]Edge, error)
	GetOutgoingEdges(ctx context.Context, nodeID string, kinds ...EdgeKind) ([]Edge, error)
	GetIncomingEdges(ctx context.Context, nodeID string, kinds ...EdgeKind) ([]Edge, error)

	// ExecuteQuery runs a backend-native query. Escape hatch; used sparingly.
	ExecuteQuery(ctx context.Context, query string, params map[string]any) ([][]any, error)

	// GetSubgraph expands from startID along paths of length 1..depth,
	// restricted by opts, and returns the de-duplicated union of nodes and
	// edges touched by any discovered path. An unknown startID yields an
	// empty graph.
	GetSubgraph(ctx context.Context, startID string, depth int, opts TraversalOptions) (*Graph, error)

	// Stats counts stored nodes and edges by kind.
	Stats(ctx context.Context) (*GraphStats, error)
}
