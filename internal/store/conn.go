package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/wikidb/internal/querysql"
	"github.com/roach88/wikidb/internal/wiki"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn carries the reads and writes shared by Store and Tx. Statements are
// written with "?" placeholders and rebound for the dialect.
type conn struct {
	q  querier
	d  querysql.Dialect
	ns *wiki.Namespaces
}

func (c *conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.d.Rebind(query), args...)
}

func (c *conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.d.Rebind(query), args...)
}

func (c *conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.d.Rebind(query), args...)
}

// QueryContext runs a statement already written in the dialect, such as
// one produced by querysql. It lets a Store or Tx serve as query.DB.
func (c *conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, query, args...)
}

// QueryRowContext is QueryContext for a single row.
func (c *conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, query, args...)
}

func (c *conn) title(ns int, dbKey string) wiki.Title {
	return c.ns.MakeTitle(ns, dbKey)
}

// tableCondition matches rows of any of the given tables.
func tableCondition(tables []wiki.Title) (string, []any) {
	parts := make([]string, len(tables))
	args := make([]any, 0, 2*len(tables))
	for i, t := range tables {
		parts[i] = "(table_namespace = ? AND table_title = ?)"
		args = append(args, t.Namespace(), t.DBKey())
	}
	return strings.Join(parts, " OR "), args
}

func affected(res sql.Result, op string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n, nil
}
