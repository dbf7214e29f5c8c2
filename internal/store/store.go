package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "github.com/mattn/go-sqlite3"    // driver: sqlite3
	_ "modernc.org/sqlite"             // driver: sqlite

	"github.com/roach88/wikidb/internal/querysql"
	"github.com/roach88/wikidb/internal/wiki"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Schema version tracking:
// 1 - Initial schema
// 2 - Index on wikidb_rowdata.is_stale
const currentSchemaVersion = 2

// Store is a connection to the WikiDB tables.
type Store struct {
	conn
	db     *sql.DB
	driver string
	log    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithNamespaces sets the namespaces used to build titles read back from
// the database. Defaults to the built-in namespaces.
func WithNamespaces(ns *wiki.Namespaces) Option {
	return func(s *Store) { s.ns = ns }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open connects to a database with one of the supported drivers (see the
// package documentation), then creates or migrates the schema.
//
// This function is idempotent - safe to call multiple times.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	d, err := querysql.DialectFor(driver)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if driver == "mysql" {
		if dsn, err = mysqlDSN(dsn); err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, driver: driver, log: slog.Default()}
	s.conn = conn{q: db, d: d, ns: wiki.MustNamespaces()}
	for _, opt := range opts {
		opt(s)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if d.Name == querysql.SQLite.Name {
		// SQLite only supports one writer at a time, so limit connections
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	if err := s.applySchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s.log.Debug("store opened", "driver", driver, "schema_version", currentSchemaVersion)
	return s, nil
}

// mysqlDSN pins the settings the store relies on: case-sensitive UTF-8
// comparisons and server-side parameter binding. An explicit collation in
// dsn is kept.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	if cfg.Collation == mysql.NewConfig().Collation {
		cfg.Collation = "utf8mb4_bin"
	}
	cfg.InterpolateParams = false
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB, used to run compiled queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string { return s.driver }

// Dialect returns the SQL dialect of the database.
func (s *Store) Dialect() querysql.Dialect { return s.d }

// Namespaces returns the namespaces titles are built with.
func (s *Store) Namespaces() *wiki.Namespaces { return s.ns }

// Tx is a transaction. It offers the same reads and writes as Store.
type Tx struct {
	conn
	tx *sql.Tx
}

// WithTx runs fn in a transaction, committing if fn returns nil and rolling
// back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback() // No-op if committed

	tx := &Tx{conn: conn{q: sqlTx, d: s.d, ns: s.ns}, tx: sqlTx}
	if err := fn(tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// SchemaVersion returns the schema version recorded in the database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM wikidb_schema_version").Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func (s *Store) applySchema(ctx context.Context) error {
	ddl, err := schemaFS.ReadFile("schema/" + s.d.Name + ".sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	for _, stmt := range splitStatements(string(ddl)) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}

	if err := s.runMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// splitStatements splits a schema file on the ";" ending each line-final
// statement. Lines starting with "--" are comments.
func splitStatements(ddl string) []string {
	var (
		out []string
		cur strings.Builder
	)
	for _, line := range strings.Split(ddl, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			out = append(out, strings.TrimSuffix(strings.TrimSpace(cur.String()), ";"))
			cur.Reset()
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}

// runMigrations applies incremental schema migrations past the recorded
// version.
func (s *Store) runMigrations(ctx context.Context) error {
	var version sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM wikidb_schema_version").Scan(&version); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}
	if version.Valid && version.Int64 >= currentSchemaVersion {
		return nil
	}

	// Version 1 databases predate the stale index. New databases get it from
	// the schema file, so only record the version for them.
	if version.Valid && version.Int64 < 2 {
		if err := s.migrateToV2(ctx); err != nil {
			return err
		}
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM wikidb_schema_version"); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.d.Rebind("INSERT INTO wikidb_schema_version (version) VALUES (?)"), currentSchemaVersion); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// migrateToV2 adds the index used to find stale rows.
func (s *Store) migrateToV2(ctx context.Context) error {
	stmt := "CREATE INDEX IF NOT EXISTS wikidb_rowdata_stale ON wikidb_rowdata (is_stale)"
	if s.d.Name == querysql.MySQL.Name {
		// MySQL has no IF NOT EXISTS for indexes.
		var n int
		err := s.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM information_schema.statistics
			WHERE table_schema = DATABASE() AND table_name = 'wikidb_rowdata' AND index_name = 'wikidb_rowdata_stale'
		`).Scan(&n)
		if err != nil {
			return fmt.Errorf("migrate to v2: %w", err)
		}
		if n > 0 {
			return nil
		}
		stmt = "CREATE INDEX wikidb_rowdata_stale ON wikidb_rowdata (is_stale)"
	}
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	return nil
}
