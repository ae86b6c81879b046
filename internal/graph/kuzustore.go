//go:build cgo

package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the property
// graph backend. It requires CGO because the go-kuzu driver wraps KuzuDB's C
// library. Node and edge kind strings double as schema labels: there is one
// CodeNode table and one relationship table per EdgeKind.
type KuzuStore struct {
	dbPath string
	db     *kuzu.Database
	conn   *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
// Connect must be called before use.
func NewKuzuStore() *KuzuStore {
	return &KuzuStore{dbPath: ":memory:"}
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path, so the graph survives across sessions. KuzuDB
// creates the leaf directory itself.
func NewKuzuFileStore(dbPath string) *KuzuStore {
	return &KuzuStore{dbPath: dbPath}
}

// Connect opens the database and connection and creates the schema.
// Idempotent: a second call on a connected store is a no-op.
func (s *KuzuStore) Connect(_ context.Context) error {
	if s.conn != nil {
		return nil
	}
	if s.dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
			return fmt.Errorf("kuzu: create parent directory: %w", err)
		}
	}
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(s.dbPath, cfg)
	if err != nil {
		return fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return fmt.Errorf("kuzu: open connection: %w", err)
	}
	s.db = db
	s.conn = conn

	if err := s.initSchema(); err != nil {
		s.Close()
		return err
	}
	return nil
}

// Close releases the KuzuDB connection and database. Idempotent.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	return nil
}

// ---------- Schema setup ----------

// initSchema creates the node table and one relationship table per edge
// kind. Properties maps are stored flat-encoded in the props column.
func (s *KuzuStore) initSchema() error {
	ddl := []string{`CREATE NODE TABLE IF NOT EXISTS CodeNode(
		id STRING,
		kind STRING,
		name STRING,
		props STRING,
		PRIMARY KEY(id)
	)`}
	for _, kind := range AllEdgeKinds {
		ddl = append(ddl, fmt.Sprintf(
			"CREATE REL TABLE IF NOT EXISTS %s(FROM CodeNode TO CodeNode, id STRING, props STRING)",
			kind,
		))
	}
	for _, stmt := range ddl {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// ClearAll deletes every node and edge.
func (s *KuzuStore) ClearAll(_ context.Context) error {
	if s.conn == nil {
		return ErrNotConnected
	}
	res, err := s.conn.Query("MATCH (n:CodeNode) DETACH DELETE n")
	if err != nil {
		return fmt.Errorf("kuzu: clear all: %w", err)
	}
	res.Close()
	return nil
}

// AddNode inserts a node with its flat-encoded properties.
func (s *KuzuStore) AddNode(_ context.Context, node Node) error {
	if s.conn == nil {
		return ErrNotConnected
	}
	props, err := encodeProps(node.Properties)
	if err != nil {
		return err
	}
	return s.exec(
		"CREATE (n:CodeNode {id: $id, kind: $kind, name: $name, props: $props})",
		map[string]any{
			"id":    node.ID,
			"kind":  string(node.Kind),
			"name":  node.Name,
			"props": props,
		},
	)
}

// AddNodes inserts nodes one at a time. Each call persists independently;
// there is no rollback on partial failure.
func (s *KuzuStore) AddNodes(ctx context.Context, nodes []Node) error {
	for _, n := range nodes {
		if err := s.AddNode(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// AddEdge inserts an edge into the relationship table named by its kind.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	if s.conn == nil {
		return ErrNotConnected
	}
	if !validEdgeKind(edge.Kind) {
		return fmt.Errorf("kuzu: unsupported edge kind: %s", edge.Kind)
	}
	props, err := encodeProps(edge.Properties)
	if err != nil {
		return err
	}
	cypher := fmt.Sprintf(
		`MATCH (a:CodeNode {id: $src}), (b:CodeNode {id: $dst})
		 CREATE (a)-[:%s {id: $id, props: $props}]->(b)`,
		edge.Kind,
	)
	return s.exec(cypher, map[string]any{
		"src":   edge.SourceID,
		"dst":   edge.TargetID,
		"id":    edge.ID,
		"props": props,
	})
}

// AddEdges inserts edges one at a time.
func (s *KuzuStore) AddEdges(ctx context.Context, edges []Edge) error {
	for _, e := range edges {
		if err := s.AddEdge(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func validEdgeKind(kind EdgeKind) bool {
	for _, k := range AllEdgeKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ---------- Read operations ----------

// GetNode retrieves a single node by id, or returns nil if not found.
func (s *KuzuStore) GetNode(_ context.Context, id string) (*Node, error) {
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	rows, err := s.query(
		"MATCH (n:CodeNode {id: $id}) RETURN n.id, n.kind, n.name, n.props",
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToNode(rows[0])
}

// GetNodesByKind returns up to limit nodes of the given kind. A limit <= 0
// returns all matches.
func (s *KuzuStore) GetNodesByKind(_ context.Context, kind NodeKind, limit int) ([]Node, error) {
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	cypher := "MATCH (n:CodeNode) WHERE n.kind = $kind RETURN n.id, n.kind, n.name, n.props"
	params := map[string]any{"kind": string(kind)}
	if limit > 0 {
		cypher += " LIMIT $lim"
		params["lim"] = int64(limit)
	}
	rows, err := s.query(cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]Node, 0, len(rows))
	for _, r := range rows {
		node, err := rowToNode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, *node)
	}
	return out, nil
}

// GetEdge retrieves a single edge by id across all relationship tables, or
// returns nil if not found.
func (s *KuzuStore) GetEdge(_ context.Context, id string) (*Edge, error) {
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	for _, kind := range AllEdgeKinds {
		cypher := fmt.Sprintf(
			"MATCH (a:CodeNode)-[r:%s {id: $id}]->(b:CodeNode) RETURN r.id, a.id, b.id, r.props",
			kind,
		)
		rows, err := s.query(cypher, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			return rowToEdge(rows[0], kind)
		}
	}
	return nil, nil
}

// GetEdgesByKind returns up to limit edges of the given kind. A limit <= 0
// returns all matches.
func (s *KuzuStore) GetEdgesByKind(_ context.Context, kind EdgeKind, limit int) ([]Edge, error) {
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	if !validEdgeKind(kind) {
		return nil, fmt.Errorf("kuzu: unsupported edge kind: %s", kind)
	}
	cypher := fmt.Sprintf(
		"MATCH (a:CodeNode)-[r:%s]->(b:CodeNode) RETURN r.id, a.id, b.id, r.props", kind,
	)
	params := map[string]any{}
	if limit > 0 {
		cypher += " LIMIT $lim"
		params["lim"] = int64(limit)
	}
	rows, err := s.query(cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]Edge, 0, len(rows))
	for _, r := range rows {
		edge, err := rowToEdge(r, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, *edge)
	}
	return out, nil
}

// GetEdgesBetween returns all edges connecting a and b in either
// orientation.
func (s *KuzuStore) GetEdgesBetween(_ context.Context, a, b string) ([]Edge, error) {
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	var out []Edge
	seen := map[string]bool{}
	for _, kind := range AllEdgeKinds {
		// Two directed matches; Kuzu relationships live in per-kind tables.
		for _, pair := range [][2]string{{a, b}, {b, a}} {
			cypher := fmt.Sprintf(
				`MATCH (x:CodeNode {id: $src})-[r:%s]->(y:CodeNode {id: $dst})
				 RETURN r.id, x.id, y.id, r.props`,
				kind,
			)
			rows, err := s.query(cypher, map[string]any{"src": pair[0], "dst": pair[1]})
			if err != nil {
				return nil, err
			}
			for _, r := range rows {
				edge, err := rowToEdge(r, kind)
				if err != nil {
					return nil, err
				}
				if seen[edge.ID] {
					continue
				}
				seen[edge.ID] = true
				out = append(out, *edge)
			}
		}
	}
	return out, nil
}

// GetOutgoingEdges returns edges whose source is nodeID, optionally filtered
// by kind.
func (s *KuzuStore) GetOutgoingEdges(ctx context.Context, nodeID string, kinds ...EdgeKind) ([]Edge, error) {
	return s.touchingEdges(ctx, nodeID, DirectionOutgoing, kinds)
}

// GetIncomingEdges returns edges whose target is nodeID, optionally filtered
// by kind.
func (s *KuzuStore) GetIncomingEdges(ctx context.Context, nodeID string, kinds ...EdgeKind) ([]Edge, error) {
	return s.touchingEdges(ctx, nodeID, DirectionIncoming, kinds)
}

func (s *KuzuStore) touchingEdges(_ context.Context, nodeID string, dir Direction, kinds []EdgeKind) ([]Edge, error) {
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	if len(kinds) == 0 {
		kinds = AllEdgeKinds
	}
	var out []Edge
	for _, kind := range kinds {
		if !validEdgeKind(kind) {
			return nil, fmt.Errorf("kuzu: unsupported edge kind: %s", kind)
		}
		var cypher string
		if dir == DirectionOutgoing {
			cypher = fmt.Sprintf(
				"MATCH (a:CodeNode {id: $id})-[r:%s]->(b:CodeNode) RETURN r.id, a.id, b.id, r.props", kind)
		} else {
			cypher = fmt.Sprintf(
				"MATCH (a:CodeNode)-[r:%s]->(b:CodeNode {id: $id}) RETURN r.id, a.id, b.id, r.props", kind)
		}
		rows, err := s.query(cypher, map[string]any{"id": nodeID})
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			edge, err := rowToEdge(r, kind)
			if err != nil {
				return nil, err
			}
			out = append(out, *edge)
		}
	}
	return out, nil
}

// ExecuteQuery runs a raw Cypher statement against the backend. Escape
// hatch; used sparingly.
func (s *KuzuStore) ExecuteQuery(_ context.Context, query string, params map[string]any) ([][]any, error) {
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	return s.query(query, params)
}

// ---------- Graph traversal ----------

// GetSubgraph performs a client-side BFS from startID, expanding via the
// per-kind relationship tables, and returns the de-duplicated union of
// touched nodes and edges.
func (s *KuzuStore) GetSubgraph(ctx context.Context, startID string, depth int, opts TraversalOptions) (*Graph, error) {
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	result := EmptyGraph()
	start, err := s.GetNode(ctx, startID)
	if err != nil {
		return nil, err
	}
	if start == nil {
		return result, nil
	}
	result.Nodes = append(result.Nodes, *start)
	if depth <= 0 {
		return result, nil
	}
	opts = opts.normalized()
	kinds := opts.EdgeKinds
	if len(kinds) == 0 {
		kinds = AllEdgeKinds
	}

	seenNodes := map[string]bool{startID: true}
	seenEdges := map[string]bool{}
	frontier := []string{startID}

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			var touching []Edge
			if opts.Direction != DirectionIncoming {
				out, err := s.GetOutgoingEdges(ctx, id, kinds...)
				if err != nil {
					return nil, err
				}
				touching = append(touching, out...)
			}
			if opts.Direction != DirectionOutgoing {
				in, err := s.GetIncomingEdges(ctx, id, kinds...)
				if err != nil {
					return nil, err
				}
				touching = append(touching, in...)
			}
			for _, edge := range touching {
				if !seenEdges[edge.ID] {
					seenEdges[edge.ID] = true
					result.Edges = append(result.Edges, edge)
				}
				neighbor := edge.TargetID
				if neighbor == id {
					neighbor = edge.SourceID
				}
				if seenNodes[neighbor] {
					continue
				}
				seenNodes[neighbor] = true
				node, err := s.GetNode(ctx, neighbor)
				if err != nil {
					return nil, err
				}
				if node != nil {
					result.Nodes = append(result.Nodes, *node)
				}
				next = append(next, neighbor)
			}
		}
		frontier = next
	}
	return result, nil
}

// ---------- Stats ----------

// Stats counts stored nodes and edges by kind.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	stats := &GraphStats{
		NodesByKind: make(map[NodeKind]int),
		EdgesByKind: make(map[EdgeKind]int),
	}
	rows, err := s.query("MATCH (n:CodeNode) RETURN n.kind, count(n)", nil)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		kind := NodeKind(toString(r[0]))
		count := toInt(r[1])
		stats.NodesByKind[kind] = count
		stats.NodeCount += count
	}
	for _, kind := range AllEdgeKinds {
		cypher := fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", kind)
		rows, err := s.query(cypher, nil)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			count := toInt(rows[0][0])
			if count > 0 {
				stats.EdgesByKind[kind] = count
			}
			stats.EdgeCount += count
		}
	}
	return stats, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// rowToNode converts a 4-column result row into a Node.
// Column order: id, kind, name, props.
func rowToNode(r []any) (*Node, error) {
	id := toString(r[0])
	props, err := decodeProps(toString(r[3]), id)
	if err != nil {
		return nil, err
	}
	return &Node{
		ID:         id,
		Kind:       NodeKind(toString(r[1])),
		Name:       toString(r[2]),
		Properties: props,
	}, nil
}

// rowToEdge converts a 4-column result row into an Edge.
// Column order: id, source id, target id, props.
func rowToEdge(r []any, kind EdgeKind) (*Edge, error) {
	id := toString(r[0])
	props, err := decodeProps(toString(r[3]), id)
	if err != nil {
		return nil, err
	}
	return &Edge{
		ID:         id,
		Kind:       kind,
		SourceID:   toString(r[1]),
		TargetID:   toString(r[2]),
		Properties: props,
	}, nil
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).
// These helpers safely coerce any -> concrete type.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
