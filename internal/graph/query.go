package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// AmbiguousError reports a name lookup that matched more than one node. The
// caller decides whether to surface the candidates or refine the query.
type AmbiguousError struct {
	Name    string
	Kind    NodeKind
	Matches []Node
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous %s %q: %d matches", e.Kind, e.Name, len(e.Matches))
}

// StructureQuery selects a declaration neighborhood. Exactly one selector is
// honored: FunctionName wins over ClassName, which wins over FilePath.
type StructureQuery struct {
	FunctionName string
	ClassName    string
	FilePath     string
	Depth        int
}

// DependencyQuery selects the import neighborhood of a file. An empty
// EdgeKinds follows Imports and DependsOn edges.
type DependencyQuery struct {
	FilePath  string
	Direction string // "upstream", "downstream", or "both"
	EdgeKinds []EdgeKind
	MaxDepth  int
}

// ErrorPathQuery selects error definitions plus their throw and handle
// sites. All fields are filters; a zero query matches every error
// definition.
type ErrorPathQuery struct {
	ErrorType    string
	FunctionName string
	Repository   string
}

const (
	defaultStructureDepth  = 2
	defaultDependencyDepth = 3
)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the engine's logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// Engine answers read queries against a Store. Queries are read-only and
// safe to run concurrently with each other; responses are always well-formed
// subgraphs, never nil.
type Engine struct {
	store  Store
	logger *slog.Logger
}

// NewEngine creates an Engine over store.
func NewEngine(store Store, opts ...EngineOption) *Engine {
	e := &Engine{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ensureConnected probes the store with a cheap read and attempts one
// reconnect if the probe fails. A second failure is returned to the caller.
func (e *Engine) ensureConnected(ctx context.Context) error {
	if _, err := e.store.GetNodesByKind(ctx, NodeKindRepository, 1); err == nil {
		return nil
	}
	e.logger.Warn("store probe failed, reconnecting")
	if err := e.store.Connect(ctx); err != nil {
		return fmt.Errorf("reconnect store: %w", err)
	}
	if _, err := e.store.GetNodesByKind(ctx, NodeKindRepository, 1); err != nil {
		return fmt.Errorf("store probe after reconnect: %w", err)
	}
	return nil
}

// QueryStructure resolves the query's selector to a single node and returns
// its neighborhood. An unmatched selector yields an empty graph; a selector
// matching several nodes yields an AmbiguousError listing them.
func (e *Engine) QueryStructure(ctx context.Context, q StructureQuery) (*Graph, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return nil, err
	}

	var (
		start *Node
		err   error
	)
	switch {
	case q.FunctionName != "":
		start, err = e.resolveByName(ctx, q.FunctionName, NodeKindFunction, NodeKindMethod)
	case q.ClassName != "":
		start, err = e.resolveByName(ctx, q.ClassName, NodeKindClass)
	case q.FilePath != "":
		start, err = e.resolveFile(ctx, q.FilePath)
	default:
		return nil, fmt.Errorf("structure query needs a function, class, or file selector")
	}
	if err != nil {
		return nil, err
	}
	if start == nil {
		return EmptyGraph(), nil
	}

	depth := q.Depth
	if depth <= 0 {
		depth = defaultStructureDepth
	}
	return e.store.GetSubgraph(ctx, start.ID, depth, TraversalOptions{Direction: DirectionBoth})
}

// TraceDependencies returns the import neighborhood of a file. Upstream
// follows edges into the file (its importers), downstream follows edges out
// of it (its imports).
func (e *Engine) TraceDependencies(ctx context.Context, q DependencyQuery) (*Graph, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return nil, err
	}
	if q.FilePath == "" {
		return nil, fmt.Errorf("dependency trace needs a file path")
	}

	start, err := e.resolveFile(ctx, q.FilePath)
	if err != nil {
		return nil, err
	}
	if start == nil {
		return EmptyGraph(), nil
	}

	var direction Direction
	switch q.Direction {
	case "upstream":
		direction = DirectionIncoming
	case "downstream":
		direction = DirectionOutgoing
	case "", "both":
		direction = DirectionBoth
	default:
		return nil, fmt.Errorf("unknown direction %q", q.Direction)
	}

	depth := q.MaxDepth
	if depth <= 0 {
		depth = defaultDependencyDepth
	}
	kinds := q.EdgeKinds
	if len(kinds) == 0 {
		kinds = []EdgeKind{EdgeKindImports, EdgeKindDependsOn}
	}
	return e.store.GetSubgraph(ctx, start.ID, depth, TraversalOptions{
		EdgeKinds: kinds,
		Direction: direction,
	})
}

// FindErrorPaths returns error definitions together with the sites that
// throw them and the handlers they route to, one hop in each direction.
// All query fields are optional filters: ErrorType substring-matches the
// definition's name or message, FunctionName keeps only definitions thrown
// from a function of that name, Repository restricts by containment. A
// zero query matches every error definition.
func (e *Engine) FindErrorPaths(ctx context.Context, q ErrorPathQuery) (*Graph, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return nil, err
	}

	defs, err := e.store.GetNodesByKind(ctx, NodeKindErrorDefinition, 0)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(q.ErrorType)
	out := EmptyGraph()
	seenNodes := make(map[string]bool)
	seenEdges := make(map[string]bool)

	addNode := func(n Node) {
		if !seenNodes[n.ID] {
			seenNodes[n.ID] = true
			out.Nodes = append(out.Nodes, n)
		}
	}
	addEdge := func(ed Edge) {
		if !seenEdges[ed.ID] {
			seenEdges[ed.ID] = true
			out.Edges = append(out.Edges, ed)
		}
	}

	for _, def := range defs {
		if q.ErrorType != "" && !matchesErrorType(def, needle) {
			continue
		}
		if q.Repository != "" {
			inRepo, err := e.containedInRepository(ctx, def.ID, q.Repository)
			if err != nil {
				return nil, err
			}
			if !inRepo {
				continue
			}
		}

		throws, err := e.store.GetIncomingEdges(ctx, def.ID, EdgeKindThrows)
		if err != nil {
			return nil, err
		}
		throwers := make([]*Node, len(throws))
		thrownByFunc := false
		for i, ed := range throws {
			thrower, err := e.store.GetNode(ctx, ed.SourceID)
			if err != nil {
				return nil, err
			}
			throwers[i] = thrower
			if thrower != nil && thrower.Name == q.FunctionName {
				thrownByFunc = true
			}
		}
		if q.FunctionName != "" && !thrownByFunc {
			continue
		}
		addNode(def)
		for i, ed := range throws {
			if throwers[i] == nil {
				continue
			}
			addNode(*throwers[i])
			addEdge(ed)
		}

		handled, err := e.store.GetOutgoingEdges(ctx, def.ID, EdgeKindHandledBy)
		if err != nil {
			return nil, err
		}
		for _, ed := range handled {
			handler, err := e.store.GetNode(ctx, ed.TargetID)
			if err != nil {
				return nil, err
			}
			if handler == nil {
				continue
			}
			addNode(*handler)
			addEdge(ed)
		}
	}
	return out, nil
}

func matchesErrorType(def Node, needle string) bool {
	if strings.Contains(strings.ToLower(def.Name), needle) {
		return true
	}
	if msg, ok := def.Properties[PropMessage].(string); ok {
		return strings.Contains(strings.ToLower(msg), needle)
	}
	return false
}

// containedInRepository walks incoming Contains edges upward until it
// reaches a Repository node and compares its name. Nodes outside any
// containment chain never match a repository filter.
func (e *Engine) containedInRepository(ctx context.Context, nodeID, repository string) (bool, error) {
	current := nodeID
	// Containment is a forest, so the walk terminates; the hop cap guards
	// against malformed data.
	for hops := 0; hops < 64; hops++ {
		edges, err := e.store.GetIncomingEdges(ctx, current, EdgeKindContains)
		if err != nil {
			return false, err
		}
		if len(edges) == 0 {
			return false, nil
		}
		parent, err := e.store.GetNode(ctx, edges[0].SourceID)
		if err != nil {
			return false, err
		}
		if parent == nil {
			return false, nil
		}
		if parent.Kind == NodeKindRepository {
			return parent.Name == repository, nil
		}
		current = parent.ID
	}
	return false, nil
}

// resolveByName finds the single node with the given name among the given
// kinds. No match returns (nil, nil); several matches return an
// AmbiguousError carrying all of them.
func (e *Engine) resolveByName(ctx context.Context, name string, kinds ...NodeKind) (*Node, error) {
	var matches []Node
	for _, kind := range kinds {
		nodes, err := e.store.GetNodesByKind(ctx, kind, 0)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			if n.Name == name {
				matches = append(matches, n)
			}
		}
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		return nil, &AmbiguousError{Name: name, Kind: matches[0].Kind, Matches: matches}
	}
}

// resolveFile finds a File node by its path property, falling back to a
// basename match so callers can pass either form. Exact path matches are
// never ambiguous; basename matches can be.
func (e *Engine) resolveFile(ctx context.Context, path string) (*Node, error) {
	files, err := e.store.GetNodesByKind(ctx, NodeKindFile, 0)
	if err != nil {
		return nil, err
	}
	var matches []Node
	for _, f := range files {
		if p, ok := f.Properties[PropPath].(string); ok && p == path {
			return &f, nil
		}
		if f.Name == path {
			matches = append(matches, f)
		}
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		return nil, &AmbiguousError{Name: path, Kind: NodeKindFile, Matches: matches}
	}
}
