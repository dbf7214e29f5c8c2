package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/wikidb/internal/markup"
	"github.com/roach88/wikidb/internal/query"
	"github.com/roach88/wikidb/internal/schema"
	"github.com/roach88/wikidb/internal/store"
	"github.com/roach88/wikidb/internal/table"
	"github.com/roach88/wikidb/internal/types"
	"github.com/roach88/wikidb/internal/wiki"
)

// Engine applies page changes to the store and runs queries against it.
// It is safe for concurrent use; each call works in its own session.
type Engine struct {
	store      *store.Store
	reg        *types.Registry
	ids        IDGenerator
	log        *slog.Logger
	maxRefresh int
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator sets the generator for processing unit ids.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMaxRefreshRate sets the batch size RefreshStaleFieldData uses when
// called without one. RefreshAll refreshes every stale row;
// DisableAutoRefresh turns the automatic refresh off.
// Default: DefaultMaxRefreshRate.
func WithMaxRefreshRate(n int) Option {
	return func(e *Engine) { e.maxRefresh = n }
}

// New creates an Engine writing to s and formatting values with reg.
func New(s *store.Store, reg *types.Registry, opts ...Option) *Engine {
	e := &Engine{
		store:      s,
		reg:        reg,
		ids:        UUIDv7Generator{},
		log:        slog.Default(),
		maxRefresh: DefaultMaxRefreshRate,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the underlying store.
func (e *Engine) Store() *store.Store { return e.store }

// Registry returns the type registry.
func (e *Engine) Registry() *types.Registry { return e.reg }

// Namespaces returns the namespace configuration.
func (e *Engine) Namespaces() *wiki.Namespaces { return e.store.Namespaces() }

// Session returns a new table session reading from the store. Use one
// session per request.
func (e *Engine) Session() *table.Session {
	return table.NewSession(e.store, e.reg, e.store.Namespaces())
}

// Query parses and compiles req in a new session. See query.New.
func (e *Engine) Query(ctx context.Context, req query.Request) (*query.Query, error) {
	return query.New(ctx, e.Session(), e.store, e.store.Dialect(), req)
}

// Update reports what a page write changed.
type Update struct {
	Page wiki.Title

	// Unit is the processing unit id the change was logged under.
	Unit string

	// Deleted is set when the page was deleted rather than updated.
	Deleted bool

	// TableSaved is set when the page's table definition was stored or,
	// for deletions, removed.
	TableSaved bool

	// RowsRemoved is the number of rows the page defined before the change.
	RowsRemoved int64

	// RowsWritten is the number of rows stored from the page's data tags.
	RowsWritten int

	// StaleRows is the number of rows marked stale by the new definition.
	StaleRows int64
}

// PageUpdated replaces everything stored for page with what text defines,
// in one transaction.
func (e *Engine) PageUpdated(ctx context.Context, page wiki.Title, text string) (Update, error) {
	var u Update
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		u, err = e.UpdatePage(ctx, tx, page, text)
		return err
	})
	return u, err
}

// PageDeleted removes everything stored for page, in one transaction.
func (e *Engine) PageDeleted(ctx context.Context, page wiki.Title) (Update, error) {
	var u Update
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		u, err = e.DeletePage(ctx, tx, page)
		return err
	})
	return u, err
}

// PageMoved re-parses both titles of a moved page: from with the text it
// has after the move (usually a redirect, or empty) and to with the moved
// text. Both run in one transaction.
func (e *Engine) PageMoved(ctx context.Context, from wiki.Title, fromText string, to wiki.Title, toText string) ([]Update, error) {
	var out []Update
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		u, err := e.UpdatePage(ctx, tx, from, fromText)
		if err != nil {
			return err
		}
		v, err := e.UpdatePage(ctx, tx, to, toText)
		if err != nil {
			return err
		}
		out = []Update{u, v}
		return nil
	})
	return out, err
}

// UpdatePage is PageUpdated within the caller's transaction.
//
// Pages in the MediaWiki namespace hold interface text, never data, and are
// left alone.
func (e *Engine) UpdatePage(ctx context.Context, tx *store.Tx, page wiki.Title, text string) (Update, error) {
	ns := e.store.Namespaces()
	page = ns.MakeTitle(page.Namespace(), page.DBKey())
	u := Update{Page: page, Unit: e.ids.NewID()}
	if page.Namespace() == wiki.NSMediaWiki {
		return u, nil
	}
	log := e.log.With("unit", u.Unit, "page", page.PrefixedDBKey())

	removed, err := tx.DeleteRowsForPage(ctx, page)
	if err != nil {
		return u, fmt.Errorf("update page %s: %w", page.FullText(), err)
	}
	u.RowsRemoved = removed

	s := table.NewSession(tx, e.reg, ns)
	if s.IsValidTable(page) {
		stale, err := e.saveDefinition(ctx, tx, s, page, text, log)
		if err != nil {
			return u, fmt.Errorf("update page %s: %w", page.FullText(), err)
		}
		u.TableSaved = true
		u.StaleRows = stale
	}

	for _, tag := range markup.ExtractTags(text) {
		n, err := e.addData(ctx, tx, s, page, tag, log)
		if err != nil {
			return u, fmt.Errorf("update page %s: %w", page.FullText(), err)
		}
		u.RowsWritten += n
	}

	log.Info("page updated",
		"table", u.TableSaved,
		"rows_removed", u.RowsRemoved,
		"rows_written", u.RowsWritten,
		"stale_rows", u.StaleRows,
	)
	return u, nil
}

// DeletePage is PageDeleted within the caller's transaction.
func (e *Engine) DeletePage(ctx context.Context, tx *store.Tx, page wiki.Title) (Update, error) {
	ns := e.store.Namespaces()
	page = ns.MakeTitle(page.Namespace(), page.DBKey())
	u := Update{Page: page, Unit: e.ids.NewID(), Deleted: true}

	if ns.IsTableNamespace(page.Namespace()) {
		deleted, err := tx.DeleteTable(ctx, page)
		if err != nil {
			return u, fmt.Errorf("delete page %s: %w", page.FullText(), err)
		}
		u.TableSaved = deleted
	}

	removed, err := tx.DeleteRowsForPage(ctx, page)
	if err != nil {
		return u, fmt.Errorf("delete page %s: %w", page.FullText(), err)
	}
	u.RowsRemoved = removed

	e.log.Info("page deleted",
		"unit", u.Unit,
		"page", page.PrefixedDBKey(),
		"table", u.TableSaved,
		"rows_removed", u.RowsRemoved,
	)
	return u, nil
}

// saveDefinition stores the table defined by page and marks the rows of
// the table and its aliases stale.
func (e *Engine) saveDefinition(ctx context.Context, tx *store.Tx, s *table.Session, page wiki.Title, text string, log *slog.Logger) (int64, error) {
	stored := table.Stored{Definition: markup.ParseTableDef(text, false)}
	if target, ok := s.Namespaces().ParseRedirect(text); ok && s.IsValidTable(target) {
		stored.Redirect = s.Namespaces().MakeTitle(target.Namespace(), target.DBKey())
	}

	if err := tx.SaveTable(ctx, page, stored.Definition, stored.Redirect); err != nil {
		return 0, err
	}
	tbl := s.Put(page, stored)

	aliases, err := tbl.AliasTitles(ctx)
	if err != nil {
		return 0, err
	}
	stale, err := tx.MarkTablesStale(ctx, aliases)
	if err != nil {
		return 0, err
	}

	log.Info("table definition saved",
		"fields", len(stored.Definition.FieldNames(true)),
		"redirect", stored.Redirect.PrefixedDBKey(),
		"aliases", len(aliases)-1,
		"stale_rows", stale,
	)
	return stale, nil
}

// addData stores the rows of one data tag. Rows are filed under the table
// the tag names and indexed with its destination's definition. Queries
// reach them through the destination's AliasTitles, so a redirect that is
// later re-pointed needs no row rewrite. Rows without any field are skipped.
func (e *Engine) addData(ctx context.Context, tx *store.Tx, s *table.Session, page wiki.Title, tag markup.DataTag, log *slog.Logger) (int, error) {
	t, err := s.ParseTableName(tag.Table)
	if err != nil || !s.IsValidTable(t) {
		log.Warn("data tag skipped: invalid table", "table", tag.Table)
		return 0, nil
	}

	tbl, err := s.Table(ctx, t)
	if err != nil {
		return 0, err
	}
	dest, err := tbl.Destination(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, rec := range tag.Rows() {
		if rec.Len() == 0 {
			continue
		}
		_, err := tx.InsertRow(ctx, store.NewRow{
			Page:   page,
			Table:  tbl.Title(),
			Data:   rec,
			Fields: fieldEntries(dest, rec),
		})
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// fieldEntries builds the field index entries of rec: one per value, in
// the sort format of the field in dest. Field names are kept as written,
// aliases included, so queries find rows indexed before an alias changed.
// Blank values are indexed too, so they can be compared against.
func fieldEntries(dest *table.Table, rec *schema.Record) []store.FieldEntry {
	var out []store.FieldEntry
	for _, name := range rec.Fields() {
		v, _ := rec.Get(name)
		for _, item := range schema.Items(v) {
			out = append(out, store.FieldEntry{
				Name:  name,
				Value: dest.FormatForSorting(name, item),
			})
		}
	}
	return out
}

// Preview returns the rows the data tags of text would store, one result
// per tag, without writing anything. Tags naming an invalid table are
// skipped. Values display against each tag's destination table.
func (e *Engine) Preview(ctx context.Context, page wiki.Title, text string) ([]*query.Result, error) {
	s := e.Session()
	var out []*query.Result
	for _, tag := range markup.ExtractTags(text) {
		t, err := s.ParseTableName(tag.Table)
		if err != nil || !s.IsValidTable(t) {
			continue
		}
		tbl, err := s.Table(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("preview %s: %w", page.FullText(), err)
		}
		dest, err := tbl.Destination(ctx)
		if err != nil {
			return nil, fmt.Errorf("preview %s: %w", page.FullText(), err)
		}

		var rows []*schema.Record
		for _, rec := range tag.Rows() {
			if rec.Len() > 0 {
				rows = append(rows, rec)
			}
		}
		out = append(out, query.NewResultFromData(dest, rows, page))
	}
	return out, nil
}
