// Package testutil provides shared test helpers for setting up staging
// directories and content databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/redmaple/streamsync/internal/content"
	"github.com/redmaple/streamsync/internal/staging"
)

// TestDB creates a temporary SQLite content store that is automatically
// cleaned up.
func TestDB(t *testing.T) *content.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "streamsync-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := content.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStaging creates a temporary staging directory with a staging.Store.
func TestStaging(t *testing.T) (string, *staging.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := staging.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// DiscardLogger returns a logger that swallows output, for wiring components
// under test.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
