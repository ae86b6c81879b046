package export

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/probehq/codegraph/internal/graph"
)

// GenerateMermaid produces a Mermaid graph TD diagram from a graph store.
// Files are grouped by directory; IMPORTS edges become arrows.
func GenerateMermaid(ctx context.Context, store graph.Store) (string, error) {
	files, err := store.GetNodesByKind(ctx, graph.NodeKindFile, 0)
	if err != nil {
		return "", fmt.Errorf("get file nodes: %w", err)
	}

	edges, err := store.GetEdgesByKind(ctx, graph.EdgeKindImports, 0)
	if err != nil {
		return "", fmt.Errorf("get import edges: %w", err)
	}

	// Build node → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(key string) string {
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[key] = id
		return id
	}

	// Group files by directory.
	byDir := make(map[string][]graph.Node)
	for _, f := range files {
		path, _ := f.Properties[graph.PropPath].(string)
		byDir[filepath.Dir(path)] = append(byDir[filepath.Dir(path)], f)
	}
	dirs := make([]string, 0, len(byDir))
	for dir := range byDir {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, dir := range dirs {
		members := byDir[dir]
		sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })

		sb.WriteString(fmt.Sprintf("  subgraph %s[\"%.40s\"]\n", getID(dir+"_dir"), dir))
		for _, f := range members {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", getID(f.ID), f.Name))
		}
		sb.WriteString("  end\n")
	}

	for _, e := range edges {
		srcID := getID(e.SourceID)
		tgtID := getID(e.TargetID)
		sb.WriteString(fmt.Sprintf("  %s --> %s\n", srcID, tgtID))
	}

	return sb.String(), nil
}
