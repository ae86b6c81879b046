package export

import (
	"context"
	"fmt"
	"time"

	"github.com/probehq/codegraph/internal/graph"
)

// GraphExport is the top-level JSON export structure.
type GraphExport struct {
	Repository string           `json:"repository,omitempty"`
	ExportedAt string           `json:"exportedAt"`
	Stats      graph.GraphStats `json:"stats"`
	Nodes      []graph.Node     `json:"nodes"`
	Edges      []graph.Edge     `json:"edges"`
}

// ExportGraph reads the whole graph out of the store into an exportable
// snapshot.
func ExportGraph(ctx context.Context, store graph.Store) (*GraphExport, error) {
	stats, err := store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	out := &GraphExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Stats:      *stats,
	}

	for _, kind := range graph.AllNodeKinds {
		nodes, err := store.GetNodesByKind(ctx, kind, 0)
		if err != nil {
			return nil, fmt.Errorf("get %s nodes: %w", kind, err)
		}
		out.Nodes = append(out.Nodes, nodes...)
	}

	for _, kind := range graph.AllEdgeKinds {
		edges, err := store.GetEdgesByKind(ctx, kind, 0)
		if err != nil {
			return nil, fmt.Errorf("get %s edges: %w", kind, err)
		}
		out.Edges = append(out.Edges, edges...)
	}

	for _, n := range out.Nodes {
		if n.Kind == graph.NodeKindRepository {
			out.Repository = n.Name
			break
		}
	}

	return out, nil
}
