package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/wikidb/internal/schema"
	"github.com/roach88/wikidb/internal/testutil"
	"github.com/roach88/wikidb/internal/wiki"
)

// sqliteDrivers are the SQLite drivers every store test runs against.
var sqliteDrivers = []string{"sqlite3", "sqlite"}

// createTestStore creates a new SQLite store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	return createTestStoreWith(t, "sqlite3")
}

// createTestStoreWith creates a new SQLite store using the named driver.
func createTestStoreWith(t *testing.T, driver string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), driver, path, WithNamespaces(testutil.Namespaces(t)))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func title(t *testing.T, s *Store, text string) wiki.Title {
	t.Helper()
	tt, err := s.Namespaces().ParseTitle(text, wiki.NSMain)
	if err != nil {
		t.Fatalf("ParseTitle(%q) failed: %v", text, err)
	}
	return tt
}

func testRecord(pairs ...string) *schema.Record {
	r := schema.NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], schema.Scalar(pairs[i+1]))
	}
	return r
}
