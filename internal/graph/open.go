//go:build cgo

package graph

// OpenStore opens the default store for dbPath: a file-backed KuzuDB for a
// real path, or an in-memory database for ":memory:". The store is not
// connected yet.
func OpenStore(dbPath string) (Store, error) {
	if dbPath == "" || dbPath == ":memory:" {
		return NewKuzuStore(), nil
	}
	return NewKuzuFileStore(dbPath), nil
}
