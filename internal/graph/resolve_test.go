package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRelative(t *testing.T) {
	r := newImportResolver([]string{
		"src/index.ts",
		"src/service.ts",
		"src/types.ts",
		"src/sub/handler.ts",
		"src/lib/index.ts",
	})

	tests := []struct {
		name       string
		importPath string
		sourceFile string
		want       string
		wantOK     bool
	}{
		{"sibling without extension", "./service", "src/index.ts", "src/service.ts", true},
		{"sibling with extension", "./types.ts", "src/index.ts", "src/types.ts", true},
		{"parent directory", "../types", "src/sub/handler.ts", "src/types.ts", true},
		{"directory index", "./lib", "src/index.ts", "src/lib/index.ts", true},
		{"not in build", "./nonexistent", "src/index.ts", "", false},
		{"package import", "lodash", "src/index.ts", "", false},
		{"scoped package import", "@scope/pkg", "src/index.ts", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.importPath, tt.sourceFile)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExportIndexScopedPerFile(t *testing.T) {
	idx := newExportIndex()
	idx.Add("src/a.ts", "helper", "node-a")
	idx.Add("src/b.ts", "helper", "node-b")

	got, ok := idx.Lookup("src/a.ts", "helper")
	require.True(t, ok)
	assert.Equal(t, "node-a", got)

	got, ok = idx.Lookup("src/b.ts", "helper")
	require.True(t, ok)
	assert.Equal(t, "node-b", got)

	_, ok = idx.Lookup("src/c.ts", "helper")
	assert.False(t, ok, "lookup in unrelated file should miss")
}

func TestExportIndexFirstWins(t *testing.T) {
	idx := newExportIndex()
	idx.Add("src/a.ts", "helper", "first")
	idx.Add("src/a.ts", "helper", "second")

	got, _ := idx.Lookup("src/a.ts", "helper")
	assert.Equal(t, "first", got)
}

func TestExportIndexIgnoresEmptyName(t *testing.T) {
	idx := newExportIndex()
	idx.Add("src/a.ts", "", "node-a")
	_, ok := idx.Lookup("src/a.ts", "")
	assert.False(t, ok, "empty export names should not be indexed")
}
