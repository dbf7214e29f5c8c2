package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/wikidb/internal/schema"
	"github.com/roach88/wikidb/internal/table"
	"github.com/roach88/wikidb/internal/wiki"
)

// TableInfo summarizes a table for listings.
type TableInfo struct {
	Title wiki.Title

	// Redirect is the table this one is an alias of, if any.
	Redirect wiki.Title

	// Rows is the number of rows stored in the table.
	Rows int
}

// LoadTable returns the stored definition of table t. It implements
// table.Source.
func (c *conn) LoadTable(ctx context.Context, t wiki.Title) (table.Stored, bool, error) {
	var (
		def      string
		redirNS  int
		redirKey string
	)
	err := c.queryRow(ctx, `
		SELECT table_def, redirect_namespace, redirect_title
		FROM wikidb_tables
		WHERE table_namespace = ? AND table_title = ?
	`, t.Namespace(), t.DBKey()).Scan(&def, &redirNS, &redirKey)
	if errors.Is(err, sql.ErrNoRows) {
		return table.Stored{}, false, nil
	}
	if err != nil {
		return table.Stored{}, false, fmt.Errorf("load table %s: %w", t.FullText(), err)
	}

	parsed, err := schema.ParseDefinition([]byte(def))
	if err != nil {
		return table.Stored{}, false, fmt.Errorf("load table %s: %w", t.FullText(), err)
	}
	stored := table.Stored{Definition: parsed}
	if redirKey != "" {
		stored.Redirect = c.title(redirNS, redirKey)
	}
	return stored, true, nil
}

// RedirectsTo returns the tables that redirect to t, ordered by namespace
// then title. It implements table.Source.
func (c *conn) RedirectsTo(ctx context.Context, t wiki.Title) ([]wiki.Title, error) {
	rows, err := c.query(ctx, `
		SELECT table_namespace, table_title
		FROM wikidb_tables
		WHERE redirect_namespace = ? AND redirect_title = ?
		ORDER BY table_namespace, table_title
	`, t.Namespace(), t.DBKey())
	if err != nil {
		return nil, fmt.Errorf("query redirects: %w", err)
	}
	defer rows.Close()

	var out []wiki.Title
	for rows.Next() {
		var (
			ns  int
			key string
		)
		if err := rows.Scan(&ns, &key); err != nil {
			return nil, fmt.Errorf("scan redirect: %w", err)
		}
		out = append(out, c.title(ns, key))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate redirects: %w", err)
	}
	return out, nil
}

// SaveTable stores the definition of table t, replacing any previous one.
// A zero redirect means the table is not an alias.
func (c *conn) SaveTable(ctx context.Context, t wiki.Title, def *schema.Definition, redirect wiki.Title) error {
	data, err := def.MarshalJSON()
	if err != nil {
		return fmt.Errorf("save table: %w", err)
	}

	if _, err := c.DeleteTable(ctx, t); err != nil {
		return fmt.Errorf("save table: %w", err)
	}
	_, err = c.exec(ctx, `
		INSERT INTO wikidb_tables
		(table_namespace, table_title, table_def, redirect_namespace, redirect_title)
		VALUES (?, ?, ?, ?, ?)
	`, t.Namespace(), t.DBKey(), string(data), redirect.Namespace(), redirect.DBKey())
	if err != nil {
		return fmt.Errorf("save table: %w", err)
	}
	return nil
}

// DeleteTable removes the definition of table t, reporting whether one
// existed. Rows stored in the table are kept.
func (c *conn) DeleteTable(ctx context.Context, t wiki.Title) (bool, error) {
	res, err := c.exec(ctx, `
		DELETE FROM wikidb_tables WHERE table_namespace = ? AND table_title = ?
	`, t.Namespace(), t.DBKey())
	if err != nil {
		return false, fmt.Errorf("delete table: %w", err)
	}
	n, err := affected(res, "delete table")
	return n > 0, err
}

// Tables lists every table with a stored definition.
func (c *conn) Tables(ctx context.Context) ([]TableInfo, error) {
	return c.listTables(ctx, `
		SELECT t.table_namespace, t.table_title, t.redirect_namespace, t.redirect_title,
			(SELECT COUNT(*) FROM wikidb_rowdata r
			 WHERE r.table_namespace = t.table_namespace AND r.table_title = t.table_title)
		FROM wikidb_tables t
		ORDER BY t.table_namespace, t.table_title
	`)
}

// UndefinedTables lists tables that hold rows but have no definition.
func (c *conn) UndefinedTables(ctx context.Context) ([]TableInfo, error) {
	return c.listTables(ctx, `
		SELECT r.table_namespace, r.table_title, 0, '', COUNT(*)
		FROM wikidb_rowdata r
		LEFT JOIN wikidb_tables t
			ON t.table_namespace = r.table_namespace AND t.table_title = r.table_title
		WHERE t.table_title IS NULL
		GROUP BY r.table_namespace, r.table_title
		ORDER BY r.table_namespace, r.table_title
	`)
}

// EmptyTables lists defined tables, other than aliases, that hold no rows.
func (c *conn) EmptyTables(ctx context.Context) ([]TableInfo, error) {
	return c.listTables(ctx, `
		SELECT t.table_namespace, t.table_title, t.redirect_namespace, t.redirect_title, 0
		FROM wikidb_tables t
		WHERE t.redirect_title = ''
			AND NOT EXISTS (
				SELECT 1 FROM wikidb_rowdata r
				WHERE r.table_namespace = t.table_namespace AND r.table_title = t.table_title
			)
		ORDER BY t.table_namespace, t.table_title
	`)
}

func (c *conn) listTables(ctx context.Context, query string) ([]TableInfo, error) {
	rows, err := c.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	out := []TableInfo{}
	for rows.Next() {
		var (
			ns, redirNS int
			key, redir  string
			count       int
		)
		if err := rows.Scan(&ns, &key, &redirNS, &redir, &count); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		info := TableInfo{Title: c.title(ns, key), Rows: count}
		if redir != "" {
			info.Redirect = c.title(redirNS, redir)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return out, nil
}
