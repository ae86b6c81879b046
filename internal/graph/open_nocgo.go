//go:build !cgo

package graph

// OpenStore falls back to the in-memory store when the KuzuDB backend is
// unavailable. The dbPath is ignored; nothing is persisted.
func OpenStore(dbPath string) (Store, error) {
	return NewMemStore(), nil
}
