package mcptools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/probehq/codegraph/internal/graph"
)

func TestNewCodeGraphMCPServer(t *testing.T) {
	store := graph.NewMemStore()
	require.NoError(t, store.Connect(context.Background()))
	defer store.Close()

	svc := NewCodeGraphService(
		graph.NewAssembler(store, graph.NewTreeSitterExtractor()),
		graph.NewEngine(store),
	)
	server := NewCodeGraphMCPServer(svc)
	require.NotNil(t, server)
}
