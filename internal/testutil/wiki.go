package testutil

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/wikidb/internal/markup"
	"github.com/roach88/wikidb/internal/table"
	"github.com/roach88/wikidb/internal/types"
	"github.com/roach88/wikidb/internal/wiki"
)

// Table namespaces used throughout the tests.
const (
	NSTable   = 100
	NSArchive = 102
)

// Namespaces returns the built-in namespaces plus "Table" (100) and
// "Archive" (102), both enabled for tables.
func Namespaces(t testing.TB) *wiki.Namespaces {
	t.Helper()
	ns, err := wiki.NewNamespaces(
		wiki.Namespace{ID: NSTable, Name: "Table", Table: true},
		wiki.Namespace{ID: NSArchive, Name: "Archive", Table: true},
	)
	require.NoError(t, err)
	return ns
}

// Registry returns the built-in type registry for ns with default settings.
func Registry(ns *wiki.Namespaces) *types.Registry {
	return types.NewBuiltinRegistry(types.Env{Namespaces: ns})
}

// MemSource is an in-memory table.Source.
type MemSource struct {
	NS *wiki.Namespaces

	mu     sync.Mutex
	tables map[wiki.Title]table.Stored
}

// NewMemSource returns an empty source over Namespaces.
func NewMemSource(t testing.TB) *MemSource {
	t.Helper()
	return &MemSource{NS: Namespaces(t), tables: make(map[wiki.Title]table.Stored)}
}

// Define stores the table page name with the given page text, the way a
// saved table page would be: field lines become the definition and a
// redirect to another table makes it an alias.
func (m *MemSource) Define(t testing.TB, name, text string) wiki.Title {
	t.Helper()
	title, err := m.NS.ParseTitle(name, m.NS.DefaultTableNamespace())
	require.NoError(t, err)
	title = m.NS.MakeTitle(title.Namespace(), title.DBKey())

	stored := table.Stored{Definition: markup.ParseTableDef(text, false)}
	if target, ok := m.NS.ParseRedirect(text); ok && m.NS.IsTableNamespace(target.Namespace()) {
		stored.Redirect = target
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[title] = stored
	return title
}

// LoadTable implements table.Source.
func (m *MemSource) LoadTable(_ context.Context, t wiki.Title) (table.Stored, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.tables[t]
	return s, ok, nil
}

// RedirectsTo implements table.Source. Results are ordered by title.
func (m *MemSource) RedirectsTo(_ context.Context, t wiki.Title) ([]wiki.Title, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []wiki.Title
	for src, s := range m.tables {
		if s.Redirect.Namespace() == t.Namespace() && s.Redirect.DBKey() == t.DBKey() && !s.Redirect.IsZero() {
			out = append(out, src)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PrefixedDBKey() < out[j].PrefixedDBKey() })
	return out, nil
}

// Session returns a table session reading from m.
func (m *MemSource) Session() *table.Session {
	return table.NewSession(m, Registry(m.NS), m.NS)
}
