package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/wikidb/internal/querysql"
	"github.com/roach88/wikidb/internal/schema"
	"github.com/roach88/wikidb/internal/wiki"
)

// FieldEntry is one value in the field index.
type FieldEntry struct {
	// Name is the field name as written in the data.
	Name string

	// Value is the value in the sort format of the field's type.
	Value string
}

// NewRow is a row to insert.
type NewRow struct {
	// Page is the page the row is defined on.
	Page wiki.Title

	// Table is the table named by the data tag, which may be an alias.
	Table wiki.Title

	Data   *schema.Record
	Fields []FieldEntry
}

// StoredRow is a row read back from the store.
type StoredRow struct {
	ID    int64
	Page  wiki.Title
	Table wiki.Title
	Data  *schema.Record
	Stale bool
}

// fieldBatch bounds the entries written by one INSERT, keeping the bind
// parameter count well under every driver's limit.
const fieldBatch = 200

// InsertRow stores a row with its field entries and returns its ID.
func (c *conn) InsertRow(ctx context.Context, r NewRow) (int64, error) {
	data, err := r.Data.MarshalJSON()
	if err != nil {
		return 0, fmt.Errorf("insert row: %w", err)
	}

	const insert = `
		INSERT INTO wikidb_rowdata
		(page_namespace, page_title, table_namespace, table_title, parsed_data, is_stale)
		VALUES (?, ?, ?, ?, ?, 0)`
	args := []any{r.Page.Namespace(), r.Page.DBKey(), r.Table.Namespace(), r.Table.DBKey(), string(data)}

	var id int64
	if c.d.Name == querysql.Postgres.Name {
		if err := c.queryRow(ctx, insert+" RETURNING row_id", args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("insert row: %w", err)
		}
	} else {
		res, err := c.exec(ctx, insert, args...)
		if err != nil {
			return 0, fmt.Errorf("insert row: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("insert row: last insert id: %w", err)
		}
	}

	if err := c.insertFields(ctx, id, r.Fields); err != nil {
		return 0, fmt.Errorf("insert row: %w", err)
	}
	return id, nil
}

func (c *conn) insertFields(ctx context.Context, rowID int64, entries []FieldEntry) error {
	for len(entries) > 0 {
		n := min(len(entries), fieldBatch)
		batch := entries[:n]
		entries = entries[n:]

		var (
			sb   strings.Builder
			args = make([]any, 0, 3*len(batch))
		)
		sb.WriteString("INSERT INTO wikidb_fielddata (row_id, field_name, field_value) VALUES ")
		for i, e := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?)")
			args = append(args, rowID, e.Name, e.Value)
		}
		if _, err := c.exec(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert fields: %w", err)
		}
	}
	return nil
}

// DeleteRowsForPage removes the rows defined on page, with their field
// entries, and returns how many rows were removed.
func (c *conn) DeleteRowsForPage(ctx context.Context, page wiki.Title) (int64, error) {
	_, err := c.exec(ctx, `
		DELETE FROM wikidb_fielddata
		WHERE row_id IN (
			SELECT row_id FROM wikidb_rowdata WHERE page_namespace = ? AND page_title = ?
		)
	`, page.Namespace(), page.DBKey())
	if err != nil {
		return 0, fmt.Errorf("delete fields: %w", err)
	}

	res, err := c.exec(ctx, `
		DELETE FROM wikidb_rowdata WHERE page_namespace = ? AND page_title = ?
	`, page.Namespace(), page.DBKey())
	if err != nil {
		return 0, fmt.Errorf("delete rows: %w", err)
	}
	return affected(res, "delete rows")
}

// RowsForPage returns the rows defined on page, in insertion order.
func (c *conn) RowsForPage(ctx context.Context, page wiki.Title) ([]StoredRow, error) {
	return c.readRows(ctx, `
		SELECT row_id, page_namespace, page_title, table_namespace, table_title, parsed_data, is_stale
		FROM wikidb_rowdata
		WHERE page_namespace = ? AND page_title = ?
		ORDER BY row_id
	`, page.Namespace(), page.DBKey())
}

// StaleRows returns up to limit stale rows, oldest first. A limit of zero
// or less returns all of them.
func (c *conn) StaleRows(ctx context.Context, limit int) ([]StoredRow, error) {
	q := `
		SELECT row_id, page_namespace, page_title, table_namespace, table_title, parsed_data, is_stale
		FROM wikidb_rowdata
		WHERE is_stale = 1
		ORDER BY row_id`
	if limit > 0 {
		return c.readRows(ctx, q+" LIMIT ?", limit)
	}
	return c.readRows(ctx, q)
}

func (c *conn) readRows(ctx context.Context, query string, args ...any) ([]StoredRow, error) {
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	out := []StoredRow{}
	for rows.Next() {
		var (
			id              int64
			pageNS, tableNS int
			pageKey, tblKey string
			data            string
			stale           int
		)
		if err := rows.Scan(&id, &pageNS, &pageKey, &tableNS, &tblKey, &data, &stale); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec, err := schema.ParseRecord([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("decode row %d: %w", id, err)
		}
		out = append(out, StoredRow{
			ID:    id,
			Page:  c.title(pageNS, pageKey),
			Table: c.title(tableNS, tblKey),
			Data:  rec,
			Stale: stale != 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Fields returns the field entries of a row, ordered by name then value.
func (c *conn) Fields(ctx context.Context, rowID int64) ([]FieldEntry, error) {
	rows, err := c.query(ctx, `
		SELECT field_name, field_value
		FROM wikidb_fielddata
		WHERE row_id = ?
		ORDER BY field_name, field_value
	`, rowID)
	if err != nil {
		return nil, fmt.Errorf("query fields: %w", err)
	}
	defer rows.Close()

	out := []FieldEntry{}
	for rows.Next() {
		var e FieldEntry
		if err := rows.Scan(&e.Name, &e.Value); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fields: %w", err)
	}
	return out, nil
}

// MarkTablesStale flags every row stored in any of tables as stale and
// returns how many rows were flagged.
func (c *conn) MarkTablesStale(ctx context.Context, tables []wiki.Title) (int64, error) {
	if len(tables) == 0 {
		return 0, nil
	}
	cond, args := tableCondition(tables)
	res, err := c.exec(ctx, "UPDATE wikidb_rowdata SET is_stale = 1 WHERE "+cond, args...)
	if err != nil {
		return 0, fmt.Errorf("mark tables stale: %w", err)
	}
	return affected(res, "mark tables stale")
}

// MarkAllRowsStale flags every row as stale.
func (c *conn) MarkAllRowsStale(ctx context.Context) (int64, error) {
	res, err := c.exec(ctx, "UPDATE wikidb_rowdata SET is_stale = 1")
	if err != nil {
		return 0, fmt.Errorf("mark all rows stale: %w", err)
	}
	return affected(res, "mark all rows stale")
}

// CountStaleRows returns the number of stale rows.
func (c *conn) CountStaleRows(ctx context.Context) (int, error) {
	var n int
	if err := c.queryRow(ctx, "SELECT COUNT(*) FROM wikidb_rowdata WHERE is_stale = 1").Scan(&n); err != nil {
		return 0, fmt.Errorf("count stale rows: %w", err)
	}
	return n, nil
}

// ReplaceFields rewrites the field entries of a stale row and clears its
// flag. It reports false, writing nothing, when the row is gone or no
// longer stale. Run it in a transaction so the row is never seen half done.
func (c *conn) ReplaceFields(ctx context.Context, rowID int64, entries []FieldEntry) (bool, error) {
	res, err := c.exec(ctx, "UPDATE wikidb_rowdata SET is_stale = 0 WHERE row_id = ? AND is_stale = 1", rowID)
	if err != nil {
		return false, fmt.Errorf("replace fields: %w", err)
	}
	n, err := affected(res, "replace fields")
	if err != nil || n == 0 {
		return false, err
	}

	if _, err := c.exec(ctx, "DELETE FROM wikidb_fielddata WHERE row_id = ?", rowID); err != nil {
		return false, fmt.Errorf("replace fields: %w", err)
	}
	if err := c.insertFields(ctx, rowID, entries); err != nil {
		return false, fmt.Errorf("replace fields: %w", err)
	}
	return true, nil
}
