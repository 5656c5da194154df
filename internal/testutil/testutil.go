// Package testutil provides shared helpers for setting up stores and mirrors
// in tests.
package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/starford/lorekeep/internal/store"
	"github.com/starford/lorekeep/internal/vault"
)

// TestStore creates a temporary SQLite record store that is removed after
// the test.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "lorekeep-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestMirror creates a Markdown mirror in a temporary directory.
func TestMirror(t *testing.T) (string, *vault.Mirror) {
	t.Helper()
	dir := t.TempDir()
	m, err := vault.Open(dir, QuietLogger())
	if err != nil {
		t.Fatal(err)
	}
	return dir, m
}

// QuietLogger discards everything below error.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
