package graph

// --- Enums ---

// NodeKind classifies nodes in the code property graph.
type NodeKind string

const (
	NodeKindRepository      NodeKind = "Repository"
	NodeKindDirectory       NodeKind = "Directory"
	NodeKindFile            NodeKind = "File"
	NodeKindClass           NodeKind = "Class"
	NodeKindMethod          NodeKind = "Method"
	NodeKindFunction        NodeKind = "Function"
	NodeKindVariable        NodeKind = "Variable"
	NodeKindErrorDefinition NodeKind = "ErrorDefinition"
)

// AllNodeKinds lists every node kind in the schema.
var AllNodeKinds = []NodeKind{
	NodeKindRepository,
	NodeKindDirectory,
	NodeKindFile,
	NodeKindClass,
	NodeKindMethod,
	NodeKindFunction,
	NodeKindVariable,
	NodeKindErrorDefinition,
}

// EdgeKind classifies relationships between nodes. Contains and Imports are
// populated by the current extraction passes; the remaining kinds are part of
// the schema so later passes (or ExecuteQuery callers) can populate them.
type EdgeKind string

const (
	EdgeKindContains  EdgeKind = "CONTAINS"
	EdgeKindImports   EdgeKind = "IMPORTS"
	EdgeKindExports   EdgeKind = "EXPORTS"
	EdgeKindCalls     EdgeKind = "CALLS"
	EdgeKindThrows    EdgeKind = "THROWS"
	EdgeKindHandledBy EdgeKind = "HANDLED_BY"
	EdgeKindDependsOn EdgeKind = "DEPENDS_ON"
)

// AllEdgeKinds lists every edge kind in the schema. Order matters for the
// Kuzu DDL: relationship tables are created in this order.
var AllEdgeKinds = []EdgeKind{
	EdgeKindContains,
	EdgeKindImports,
	EdgeKindExports,
	EdgeKindCalls,
	EdgeKindThrows,
	EdgeKindHandledBy,
	EdgeKindDependsOn,
}

// Direction controls subgraph traversal direction relative to an edge's
// declared source/target orientation.
type Direction string

const (
	// DirectionBoth traverses edges regardless of orientation, so one call
	// answers both "what contains/imports me" and "what do I contain/import".
	DirectionBoth     Direction = "both"
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// --- Well-known property keys ---

// Property keys written by the extractor and assembler. Properties are open
// maps; these constants just name the keys the built-in passes use.
const (
	PropPath       = "path"
	PropLanguage   = "language"
	PropStartByte  = "startByte"
	PropEndByte    = "endByte"
	PropReturnType = "returnType"
	PropType       = "type"
	PropIsAsync    = "isAsync"
	PropIsStatic   = "isStatic"
	PropIsConst    = "isConst"
	PropIsExported = "isExported"
	PropVisibility = "visibility"
	PropSuperClass = "superClass"
	PropInterfaces = "interfaces"
	PropImportName = "importName"
	PropIsDefault  = "isDefault"
	PropSymbolID   = "symbolId"
	PropMessage    = "message"
)

// --- Models ---

// Node is a typed, property-bearing entity in the code graph. IDs are unique
// within one build and regenerated on every rebuild.
type Node struct {
	ID         string         `json:"id"`
	Kind       NodeKind       `json:"kind"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Edge is a typed, property-bearing relationship between two nodes.
type Edge struct {
	ID         string         `json:"id"`
	Kind       EdgeKind       `json:"kind"`
	SourceID   string         `json:"sourceId"`
	TargetID   string         `json:"targetId"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Graph is the value produced by a build and returned by every query.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// EmptyGraph returns a Graph with allocated, zero-length slices. Queries that
// resolve nothing return this rather than an error.
func EmptyGraph() *Graph {
	return &Graph{Nodes: []Node{}, Edges: []Edge{}}
}

// GraphStats summarizes the stored graph by kind.
type GraphStats struct {
	NodeCount   int              `json:"nodeCount"`
	EdgeCount   int              `json:"edgeCount"`
	NodesByKind map[NodeKind]int `json:"nodesByKind"`
	EdgesByKind map[EdgeKind]int `json:"edgesByKind"`
}
