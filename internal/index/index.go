// Package index provides a SQLite-backed derived index over the capture
// store, with optional FTS5 full-text search. The filesystem stays
// authoritative; the index only serves search and is rebuilt by sync and
// the watcher.
package index

// ItemIndex defines the interface for capture indexing operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type ItemIndex interface {
	UpsertItem(row ItemRow, body string) error
	DeleteItem(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies ItemIndex at compile time.
var _ ItemIndex = (*DB)(nil)
