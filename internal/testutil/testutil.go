// Package testutil provides shared test helpers for setting up project
// directories and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/storage"
)

// AuthorsYML is a small authors file used by fixtures.
const AuthorsYML = "alice:\n  name: Alice A\nbob:\n  name: Bob B\n"

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ansuz-test-*.db")
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

// TestProject creates a temporary Jekyll project directory with _posts and
// _data/authors.yml, and returns it with a storage.Provider.
func TestProject(t *testing.T) (string, storage.Provider) {
	t.Helper()
	projectDir := t.TempDir()
	for _, d := range []string{"_posts", "_data"} {
		if err := os.MkdirAll(filepath.Join(projectDir, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(projectDir, "_data", "authors.yml"), []byte(AuthorsYML), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFS(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	return projectDir, store
}
