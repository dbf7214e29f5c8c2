// Package store provides durable storage for table definitions and the
// rows defined on wiki pages.
//
// Three tables hold the data:
//   - wikidb_tables: one parsed definition per table page, plus the table
//     it redirects to, if any
//   - wikidb_rowdata: one row per data record, keyed by the page that
//     defines it and the table its data tag names, with the record
//     serialized as JSON and a stale flag
//   - wikidb_fielddata: the field index, one entry per value per field of
//     each row, in the sort format of the field's type
//
// # Critical Patterns
//
// Rows are written by their page: every save deletes the page's rows and
// field entries and inserts fresh ones inside one transaction (see WithTx).
//
// Field entries depend on the table definition. Saving a definition marks
// the table's rows stale instead of rewriting them; ReplaceFields rewrites
// one row's entries and clears its flag atomically.
//
// All listings are ordered by namespace then title, and rows by row_id, so
// results are deterministic.
//
// # Drivers
//
//   - sqlite3: github.com/mattn/go-sqlite3 (cgo)
//   - sqlite: modernc.org/sqlite (pure Go)
//   - pgx: github.com/jackc/pgx/v5/stdlib
//   - mysql: github.com/go-sql-driver/mysql
//
// SQLite databases run in WAL mode with a 5-second busy timeout, foreign
// keys on, and a single connection.
package store
