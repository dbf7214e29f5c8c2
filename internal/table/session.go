package table

import (
	"context"
	"fmt"

	"github.com/roach88/wikidb/internal/schema"
	"github.com/roach88/wikidb/internal/types"
	"github.com/roach88/wikidb/internal/wiki"
)

// Stored is a table definition as persisted: the parsed fields and the
// table the page redirects to, if any.
type Stored struct {
	Definition *schema.Definition
	Redirect   wiki.Title // zero when the page is not a redirect to a table
}

// Source reads table definitions from storage.
type Source interface {
	// LoadTable returns the stored definition of t. ok is false when the
	// table has never been saved.
	LoadTable(ctx context.Context, t wiki.Title) (s Stored, ok bool, err error)

	// RedirectsTo returns the tables whose redirect target is t.
	RedirectsTo(ctx context.Context, t wiki.Title) ([]wiki.Title, error)
}

// Session resolves tables for one processing unit, such as a request or a
// command invocation. Definitions, destinations and alias sets are cached
// for the life of the session, so a session must not outlive the unit of
// work it was created for. A Session is not safe for concurrent use.
type Session struct {
	src Source
	reg *types.Registry
	ns  *wiki.Namespaces

	tables       map[wiki.Title]*Table
	destinations map[wiki.Title]*Table
	aliases      map[wiki.Title][]*Table
}

// NewSession returns a session reading from src.
func NewSession(src Source, reg *types.Registry, ns *wiki.Namespaces) *Session {
	return &Session{
		src:          src,
		reg:          reg,
		ns:           ns,
		tables:       make(map[wiki.Title]*Table),
		destinations: make(map[wiki.Title]*Table),
		aliases:      make(map[wiki.Title][]*Table),
	}
}

// Registry returns the type registry used for formatting.
func (s *Session) Registry() *types.Registry { return s.reg }

// Namespaces returns the namespace configuration.
func (s *Session) Namespaces() *wiki.Namespaces { return s.ns }

// IsValidTable reports whether t lies in an enabled table namespace.
func (s *Session) IsValidTable(t wiki.Title) bool {
	return !t.IsZero() && s.ns.IsTableNamespace(t.Namespace())
}

// ParseTableName parses a table name typed by a user. Names without a
// namespace prefix are placed in the default table namespace.
func (s *Session) ParseTableName(name string) (wiki.Title, error) {
	t, err := s.ns.ParseTitle(name, s.ns.DefaultTableNamespace())
	if err != nil {
		return wiki.Title{}, fmt.Errorf("parse table name %q: %w", name, err)
	}
	return s.ns.MakeTitle(t.Namespace(), t.DBKey()), nil
}

// Table returns the table for t, loading its definition on first use.
// Tables without a stored definition have an empty one.
func (s *Session) Table(ctx context.Context, t wiki.Title) (*Table, error) {
	t = s.ns.MakeTitle(t.Namespace(), t.DBKey())
	if tbl, ok := s.tables[t]; ok {
		return tbl, nil
	}

	stored, ok, err := s.src.LoadTable(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("load table %s: %w", t.PrefixedDBKey(), err)
	}
	tbl := s.newTable(t, stored, ok)
	s.tables[t] = tbl
	return tbl, nil
}

// TableByName parses name and returns its table.
func (s *Session) TableByName(ctx context.Context, name string) (*Table, error) {
	t, err := s.ParseTableName(name)
	if err != nil {
		return nil, err
	}
	return s.Table(ctx, t)
}

// Put replaces the cached definition of t, as after the table page was
// saved. Destinations and alias sets are dropped since the redirect graph
// may have changed.
func (s *Session) Put(t wiki.Title, stored Stored) *Table {
	t = s.ns.MakeTitle(t.Namespace(), t.DBKey())
	tbl := s.newTable(t, stored, true)
	s.tables[t] = tbl
	s.resetGraph()
	return tbl
}

// Forget drops everything cached about t, as after its page was deleted.
func (s *Session) Forget(t wiki.Title) {
	delete(s.tables, s.ns.MakeTitle(t.Namespace(), t.DBKey()))
	s.resetGraph()
}

func (s *Session) resetGraph() {
	clear(s.destinations)
	clear(s.aliases)
}

func (s *Session) newTable(t wiki.Title, stored Stored, exists bool) *Table {
	def := stored.Definition
	if def == nil {
		def = schema.NewDefinition()
	}
	return &Table{
		s:        s,
		title:    t,
		def:      def,
		redirect: stored.Redirect,
		exists:   exists,
	}
}
