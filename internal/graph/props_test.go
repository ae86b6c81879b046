package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropsRoundTrip(t *testing.T) {
	props := map[string]any{
		"path":       "src/app.ts",
		"isExported": true,
		"startByte":  float64(42),
		"interfaces": []any{"Identifiable", "Serializable"},
	}

	encoded, err := encodeProps(props)
	require.NoError(t, err)
	decoded, err := decodeProps(encoded, "n1")
	require.NoError(t, err)

	assert.Len(t, decoded, len(props))
	assert.Equal(t, "src/app.ts", decoded["path"])
	assert.Equal(t, true, decoded["isExported"])
	ifaces, ok := decoded["interfaces"].([]any)
	require.True(t, ok, "interfaces = %#v", decoded["interfaces"])
	assert.Len(t, ifaces, 2)
}

func TestPropsEmpty(t *testing.T) {
	encoded, err := encodeProps(nil)
	require.NoError(t, err)
	assert.Empty(t, encoded)

	decoded, err := decodeProps("", "n1")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestPropsCorrupt(t *testing.T) {
	_, err := decodeProps("{not json", "edge-7")
	require.Error(t, err)
	var serr *SerializationError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "edge-7", serr.EntityID)
}
