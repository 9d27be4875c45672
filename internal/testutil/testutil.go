// Package testutil provides shared test helpers for setting up stores and databases.
package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/marwick/shoebox/internal/analyze"
	"github.com/marwick/shoebox/internal/index"
	"github.com/marwick/shoebox/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "shoebox-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary capture store with a fixed analyzer identity.
func TestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(t.TempDir(), analyze.NewWithClock("testhost", "linux/amd64", time.Now))
	if err != nil {
		t.Fatal(err)
	}
	return st
}
