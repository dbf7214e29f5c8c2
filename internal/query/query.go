package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/wikidb/internal/criteria"
	"github.com/roach88/wikidb/internal/queryir"
	"github.com/roach88/wikidb/internal/querysql"
	"github.com/roach88/wikidb/internal/schema"
	"github.com/roach88/wikidb/internal/table"
	"github.com/roach88/wikidb/internal/wiki"
)

// DB runs read-only statements. *sql.DB and *sql.Tx satisfy it.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Request describes a query.
type Request struct {
	// Tables names the tables to query. Names that resolve to the same
	// destination count once; more than one destination is unsupported.
	Tables []string

	// Criteria filters the rows, e.g. `Name = "Bob" AND Age > 18`.
	Criteria string

	// Sort orders the rows, e.g. "Age DESC, Name".
	Sort string

	// Source restricts the rows to those defined on one page.
	Source *wiki.Title
}

// Query is a parsed and compiled query. A query whose input had errors
// is still usable: it reports the error and returns no rows.
type Query struct {
	s    *table.Session
	db   DB
	comp *querysql.Compiler

	tbl  *table.Table
	sort []criteria.SortField
	plan *queryir.Plan
	err  *criteria.Error
}

// New parses and compiles req against the tables of s.
//
// Problems with the request are kept on the query (see HasErrors). The
// returned error is for failures to load table definitions only.
func New(ctx context.Context, s *table.Session, db DB, d querysql.Dialect, req Request) (*Query, error) {
	q := &Query{s: s, db: db, comp: querysql.NewCompiler(d)}
	err := q.prepare(ctx, req)

	var qe *criteria.Error
	if errors.As(err, &qe) {
		slog.Debug("query rejected",
			"tables", req.Tables,
			"criteria", req.Criteria,
			"sort", req.Sort,
			"error", qe.Error(),
		)
		q.err = qe
		q.plan = nil
		return q, nil
	}
	if err != nil {
		return nil, fmt.Errorf("new query: %w", err)
	}
	return q, nil
}

func (q *Query) prepare(ctx context.Context, req Request) error {
	var tables []*table.Table
	for _, name := range req.Tables {
		tbl, err := criteria.LookupTable(ctx, q.s, name)
		if err != nil {
			return err
		}
		if !containsTable(tables, tbl) {
			tables = append(tables, tbl)
		}
	}
	switch len(tables) {
	case 0:
		return &criteria.Error{Kind: criteria.ErrBadTableName}
	case 1:
		q.tbl = tables[0]
	default:
		return &criteria.Error{Kind: criteria.ErrMultiTableQueryUnsupported}
	}

	p := criteria.NewParser(q.s, q.tbl)
	toks, err := p.ParseCriteria(ctx, req.Criteria)
	if err != nil {
		return err
	}
	if q.sort, err = p.ParseSort(ctx, req.Sort); err != nil {
		return err
	}

	q.plan, err = BuildPlan(ctx, q.tbl, toks, q.sort, req.Source)
	return err
}

func containsTable(tables []*table.Table, t *table.Table) bool {
	for _, x := range tables {
		if x.Title() == t.Title() {
			return true
		}
	}
	return false
}

// HasErrors reports whether the request could not be parsed.
func (q *Query) HasErrors() bool { return q.err != nil }

// ErrorMessage returns the user-facing error message, or "".
func (q *Query) ErrorMessage() string {
	if q.err == nil {
		return ""
	}
	return q.err.Error()
}

// Err returns the parse error, or nil.
func (q *Query) Err() error {
	if q.err == nil {
		return nil
	}
	return q.err
}

// Table returns the destination table queried, or nil if the table name
// was rejected.
func (q *Query) Table() *table.Table { return q.tbl }

// Plan returns the compiled plan, or nil if the query has errors.
func (q *Query) Plan() *queryir.Plan { return q.plan }

// DebugSQL returns the SQL selecting every row of the query, for
// diagnostics. It is "" when the query has errors.
func (q *Query) DebugSQL() string {
	if q.plan == nil {
		return ""
	}
	stmt, _, err := q.comp.Compile(q.plan, querysql.All)
	if err != nil {
		return ""
	}
	return stmt
}

// Count returns the number of rows the query matches; 0 when it has errors.
func (q *Query) Count(ctx context.Context) (int, error) {
	if q.plan == nil {
		return 0, nil
	}
	stmt, args, err := q.comp.CompileCount(q.plan)
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	var n int
	if err := q.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

// Rows runs the query and returns up to limit rows starting at offset
// (0-based). A negative limit returns every remaining row. A query with
// errors returns an empty result.
func (q *Query) Rows(ctx context.Context, offset, limit int) (*Result, error) {
	if offset < 0 {
		offset = 0
	}
	if q.plan == nil {
		return newResult(q.tbl, nil, offset, limit), nil
	}

	stmt, args, err := q.comp.Compile(q.plan, querysql.Page{Offset: offset, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	rs, err := q.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rs.Close()

	ns := q.s.Namespaces()
	var rows []Row
	for rs.Next() {
		var (
			pageNS    int
			pageTitle string
			data      string
			ignored   = make([]any, len(q.plan.Sort)+1)
		)
		dest := []any{&pageNS, &pageTitle, &data}
		for i := range ignored {
			dest = append(dest, &ignored[i])
		}
		if err := rs.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		rec, err := schema.ParseRecord([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("decode row of %s: %w", ns.MakeTitle(pageNS, pageTitle).FullText(), err)
		}
		q.sortMultiValues(rec)

		rows = append(rows, Row{
			Number: offset + len(rows) + 1,
			Source: ns.MakeTitle(pageNS, pageTitle),
			Data:   rec,
		})
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return newResult(q.tbl, rows, offset, limit), nil
}
