package graph

import (
	"context"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
// Properties are pushed through the same flat encoding the database backend
// uses, so the round-trip contract is exercised even in tests.
type MemStore struct {
	mu        sync.RWMutex
	connected bool
	nodes     map[string]memNode
	edges     map[string]memEdge
	edgeOrder []string // insertion order for stable reads
}

// memNode / memEdge hold the stored (flat-encoded) form.
type memNode struct {
	id, name string
	kind     NodeKind
	props    string
}

type memEdge struct {
	id, source, target string
	kind               EdgeKind
	props              string
}

// NewMemStore returns an initialized MemStore. Connect must still be called
// before use, matching the backend contract.
func NewMemStore() *MemStore {
	return &MemStore{
		nodes: make(map[string]memNode),
		edges: make(map[string]memEdge),
	}
}

// Connect marks the store connected. Idempotent.
func (m *MemStore) Connect(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

// Close marks the store disconnected. Idempotent.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

func (m *MemStore) checkConnected() error {
	if !m.connected {
		return ErrNotConnected
	}
	return nil
}

// ClearAll deletes every node and edge.
func (m *MemStore) ClearAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkConnected(); err != nil {
		return err
	}
	m.nodes = make(map[string]memNode)
	m.edges = make(map[string]memEdge)
	m.edgeOrder = nil
	return nil
}

// AddNode stores a node keyed by its id.
func (m *MemStore) AddNode(_ context.Context, node Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkConnected(); err != nil {
		return err
	}
	props, err := encodeProps(node.Properties)
	if err != nil {
		return err
	}
	m.nodes[node.ID] = memNode{id: node.ID, name: node.Name, kind: node.Kind, props: props}
	return nil
}

// AddNodes stores nodes one at a time; a failure leaves earlier writes in
// place (no rollback, per the store contract).
func (m *MemStore) AddNodes(ctx context.Context, nodes []Node) error {
	for _, n := range nodes {
		if err := m.AddNode(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// GetNode returns the node for the given id, or nil if not found.
func (m *MemStore) GetNode(_ context.Context, id string) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkConnected(); err != nil {
		return nil, err
	}
	stored, ok := m.nodes[id]
	if !ok {
		return nil, nil
	}
	return m.decodeNode(stored)
}

// GetNodesByKind returns up to limit nodes of the given kind. A limit <= 0
// returns all matches.
func (m *MemStore) GetNodesByKind(_ context.Context, kind NodeKind, limit int) ([]Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkConnected(); err != nil {
		return nil, err
	}
	var out []Node
	for _, stored := range m.nodes {
		if stored.kind != kind {
			continue
		}
		node, err := m.decodeNode(stored)
		if err != nil {
			return nil, err
		}
		out = append(out, *node)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// AddEdge stores an edge keyed by its id.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkConnected(); err != nil {
		return err
	}
	props, err := encodeProps(edge.Properties)
	if err != nil {
		return err
	}
	if _, exists := m.edges[edge.ID]; !exists {
		m.edgeOrder = append(m.edgeOrder, edge.ID)
	}
	m.edges[edge.ID] = memEdge{
		id:     edge.ID,
		source: edge.SourceID,
		target: edge.TargetID,
		kind:   edge.Kind,
		props:  props,
	}
	return nil
}

// AddEdges stores edges one at a time.
func (m *MemStore) AddEdges(ctx context.Context, edges []Edge) error {
	for _, e := range edges {
		if err := m.AddEdge(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// GetEdge returns the edge for the given id, or nil if not found.
func (m *MemStore) GetEdge(_ context.Context, id string) (*Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkConnected(); err != nil {
		return nil, err
	}
	stored, ok := m.edges[id]
	if !ok {
		return nil, nil
	}
	return m.decodeEdge(stored)
}

// GetEdgesByKind returns up to limit edges of the given kind in insertion
// order. A limit <= 0 returns all matches.
func (m *MemStore) GetEdgesByKind(_ context.Context, kind EdgeKind, limit int) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkConnected(); err != nil {
		return nil, err
	}
	var out []Edge
	for _, id := range m.edgeOrder {
		stored := m.edges[id]
		if stored.kind != kind {
			continue
		}
		edge, err := m.decodeEdge(stored)
		if err != nil {
			return nil, err
		}
		out = append(out, *edge)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// GetEdgesBetween returns all edges connecting a and b, in either
// orientation.
func (m *MemStore) GetEdgesBetween(_ context.Context, a, b string) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkConnected(); err != nil {
		return nil, err
	}
	var out []Edge
	for _, id := range m.edgeOrder {
		stored := m.edges[id]
		if (stored.source == a && stored.target == b) || (stored.source == b && stored.target == a) {
			edge, err := m.decodeEdge(stored)
			if err != nil {
				return nil, err
			}
			out = append(out, *edge)
		}
	}
	return out, nil
}

// GetOutgoingEdges returns edges whose source is nodeID, optionally filtered
// by kind.
func (m *MemStore) GetOutgoingEdges(_ context.Context, nodeID string, kinds ...EdgeKind) ([]Edge, error) {
	return m.edgesTouching(nodeID, DirectionOutgoing, kinds)
}

// GetIncomingEdges returns edges whose target is nodeID, optionally filtered
// by kind.
func (m *MemStore) GetIncomingEdges(_ context.Context, nodeID string, kinds ...EdgeKind) ([]Edge, error) {
	return m.edgesTouching(nodeID, DirectionIncoming, kinds)
}

func (m *MemStore) edgesTouching(nodeID string, dir Direction, kinds []EdgeKind) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkConnected(); err != nil {
		return nil, err
	}
	filter := TraversalOptions{EdgeKinds: kinds}
	var out []Edge
	for _, id := range m.edgeOrder {
		stored := m.edges[id]
		if !filter.matchesKind(stored.kind) {
			continue
		}
		match := (dir == DirectionOutgoing && stored.source == nodeID) ||
			(dir == DirectionIncoming && stored.target == nodeID)
		if !match {
			continue
		}
		edge, err := m.decodeEdge(stored)
		if err != nil {
			return nil, err
		}
		out = append(out, *edge)
	}
	return out, nil
}

// ExecuteQuery is unsupported by the in-memory store; it exists so MemStore
// satisfies the full contract.
func (m *MemStore) ExecuteQuery(_ context.Context, _ string, _ map[string]any) ([][]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkConnected(); err != nil {
		return nil, err
	}
	return nil, nil
}

// GetSubgraph performs a BFS from startID up to depth hops, restricted by
// opts, and returns the de-duplicated union of touched nodes and edges.
func (m *MemStore) GetSubgraph(_ context.Context, startID string, depth int, opts TraversalOptions) (*Graph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkConnected(); err != nil {
		return nil, err
	}

	result := EmptyGraph()
	start, ok := m.nodes[startID]
	if !ok || depth <= 0 {
		if ok {
			node, err := m.decodeNode(start)
			if err != nil {
				return nil, err
			}
			result.Nodes = append(result.Nodes, *node)
		}
		return result, nil
	}
	opts = opts.normalized()

	seenNodes := map[string]bool{startID: true}
	seenEdges := map[string]bool{}

	startNode, err := m.decodeNode(start)
	if err != nil {
		return nil, err
	}
	result.Nodes = append(result.Nodes, *startNode)

	frontier := []string{startID}
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			for _, edgeID := range m.edgeOrder {
				stored := m.edges[edgeID]
				if !opts.matchesKind(stored.kind) {
					continue
				}
				var neighbor string
				switch {
				case stored.source == id && opts.Direction != DirectionIncoming:
					neighbor = stored.target
				case stored.target == id && opts.Direction != DirectionOutgoing:
					neighbor = stored.source
				default:
					continue
				}
				if !seenEdges[edgeID] {
					seenEdges[edgeID] = true
					edge, err := m.decodeEdge(stored)
					if err != nil {
						return nil, err
					}
					result.Edges = append(result.Edges, *edge)
				}
				if seenNodes[neighbor] {
					continue
				}
				seenNodes[neighbor] = true
				if nbStored, ok := m.nodes[neighbor]; ok {
					node, err := m.decodeNode(nbStored)
					if err != nil {
						return nil, err
					}
					result.Nodes = append(result.Nodes, *node)
				}
				next = append(next, neighbor)
			}
		}
		frontier = next
	}
	return result, nil
}

// Stats counts stored nodes and edges by kind.
func (m *MemStore) Stats(_ context.Context) (*GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkConnected(); err != nil {
		return nil, err
	}
	stats := &GraphStats{
		NodeCount:   len(m.nodes),
		EdgeCount:   len(m.edges),
		NodesByKind: make(map[NodeKind]int),
		EdgesByKind: make(map[EdgeKind]int),
	}
	for _, n := range m.nodes {
		stats.NodesByKind[n.kind]++
	}
	for _, e := range m.edges {
		stats.EdgesByKind[e.kind]++
	}
	return stats, nil
}

// --- decoding helpers ---

func (m *MemStore) decodeNode(stored memNode) (*Node, error) {
	props, err := decodeProps(stored.props, stored.id)
	if err != nil {
		return nil, err
	}
	return &Node{ID: stored.id, Kind: stored.kind, Name: stored.name, Properties: props}, nil
}

func (m *MemStore) decodeEdge(stored memEdge) (*Edge, error) {
	props, err := decodeProps(stored.props, stored.id)
	if err != nil {
		return nil, err
	}
	return &Edge{
		ID:         stored.id,
		Kind:       stored.kind,
		SourceID:   stored.source,
		TargetID:   stored.target,
		Properties: props,
	}, nil
}
