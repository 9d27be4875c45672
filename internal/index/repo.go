package index

import (
	"encoding/json"
	"fmt"
)

// ItemRow represents a row in the items table.
type ItemRow struct {
	Path       string
	Partition  string
	Type       string
	Method     string
	SourceApp  string
	Domain     string
	Tags       []string
	Checksum   string
	CapturedAt string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Type    string `json:"type"`
	Snippet string `json:"snippet"`
}

// UpsertItem inserts or replaces an item and its FTS entry within a
// transaction. body is the searchable text (the capture body for text
// items, empty for images).
func (db *DB) UpsertItem(row ItemRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(row.Tags)

	_, err = tx.Exec(`
		INSERT INTO items (path, partition, type, method, source_app, domain, tags, body, checksum, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			partition   = excluded.partition,
			type        = excluded.type,
			method      = excluded.method,
			source_app  = excluded.source_app,
			domain      = excluded.domain,
			tags        = excluded.tags,
			body        = excluded.body,
			checksum    = excluded.checksum,
			captured_at = excluded.captured_at
	`, row.Path, row.Partition, row.Type, row.Method, row.SourceApp, row.Domain,
		string(tagsJSON), body, row.Checksum, row.CapturedAt)
	if err != nil {
		return fmt.Errorf("index: upsert item: %w", err)
	}

	// FTS upsert (no-op when the FTS5 tag is absent).
	if err := ftsUpsert(tx, row.Path, body, row.Tags); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteItem removes an item and its FTS entry.
func (db *DB) DeleteItem(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM items WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for an item, or empty string if
// not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM items WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every indexed item.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM items`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
