// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store owns the relational schema and the typed queries over it.
// SQLite (modernc.org/sqlite) and PostgreSQL (pgx) are supported; the
// dialect is chosen from the DSN scheme.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Dialect identifies the SQL backend behind a DB.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DB is a connection pool tagged with its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Wrap tags an already opened pool. Tests use it with in-memory databases.
func Wrap(db *sql.DB, dialect Dialect) *DB {
	return &DB{DB: db, Dialect: dialect}
}

// DBConfig holds connection pool options.
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultDBConfig returns pool defaults suitable for both dialects.
func DefaultDBConfig() DBConfig {
	return DBConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// ParseDSN splits a database URL into its dialect and the driver DSN.
// Accepted forms: sqlite:<path>, file:<path>, a bare filesystem path,
// postgres://... and postgresql://...
func ParseDSN(dsn string) (Dialect, string, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return "", "", fmt.Errorf("empty database URL")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return DialectSQLite, strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return DialectSQLite, strings.TrimPrefix(dsn, "sqlite:"), nil
	case strings.HasPrefix(dsn, "file:"):
		return DialectSQLite, dsn, nil
	case strings.Contains(dsn, "://"):
		return "", "", fmt.Errorf("unsupported database URL scheme in %q", dsn)
	}
	return DialectSQLite, dsn, nil
}

// DataDir returns the directory holding the SQLite file named by dsn, or ""
// for Postgres and in-memory databases.
func DataDir(dsn string) string {
	dialect, source, err := ParseDSN(dsn)
	if err != nil || dialect != DialectSQLite {
		return ""
	}
	source = strings.TrimPrefix(source, "file:")
	source, _, _ = strings.Cut(source, "?")
	if source == "" || strings.Contains(source, ":memory:") {
		return ""
	}
	return filepath.Dir(source)
}

// Open connects to the database named by dsn.
func Open(dsn string) (*DB, error) {
	dialect, source, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	if dialect == DialectPostgres {
		return openPostgres(source, DefaultDBConfig())
	}
	return openSQLite(source, DefaultDBConfig())
}

// sqlitePragmas are applied by the driver to every new connection.
var sqlitePragmas = []string{
	"busy_timeout(5000)",  // Wait 5s when database is locked
	"journal_mode(WAL)",   // Write-Ahead Logging for better concurrency
	"synchronous(NORMAL)", // Good balance of safety and speed
	"cache_size(-64000)",  // 64MB cache
	"foreign_keys(1)",     // Enforce foreign key constraints
	"temp_store(MEMORY)",  // Store temp tables in memory
}

// sqliteDSN appends the connection pragmas and immediate transaction
// locking to path. Pragmas and _txlock already present in path win.
func sqliteDSN(path string) (string, error) {
	base, rawQuery, _ := strings.Cut(path, "?")
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("parsing sqlite DSN parameters: %w", err)
	}

	set := make(map[string]bool)
	for _, p := range params["_pragma"] {
		name, _, _ := strings.Cut(p, "(")
		set[strings.ToLower(strings.TrimSpace(name))] = true
	}
	for _, p := range sqlitePragmas {
		name, _, _ := strings.Cut(p, "(")
		if !set[name] {
			params.Add("_pragma", p)
		}
	}
	if params.Get("_txlock") == "" {
		params.Set("_txlock", "immediate")
	}
	return base + "?" + params.Encode(), nil
}

func openSQLite(path string, cfg DBConfig) (*DB, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	configurePool(db, cfg)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return Wrap(db, DialectSQLite), nil
}

func openPostgres(url string, cfg DBConfig) (*DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	configurePool(db, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return Wrap(db, DialectPostgres), nil
}

func configurePool(db *sql.DB, cfg DBConfig) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

// Migrate applies all pending migrations for the pool's dialect.
// Running it against an up-to-date schema is a no-op.
func Migrate(db *DB) error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	gooseDialect, dir := "sqlite3", "migrations/sqlite"
	if db.Dialect == DialectPostgres {
		gooseDialect, dir = "postgres", "migrations/postgres"
	}

	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}
	if err := goose.Up(db.DB, dir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Queries returns the query set bound to the pool.
func (db *DB) Queries() *Queries {
	return New(db.DB, db.Dialect)
}

// InTx runs fn inside a transaction, committing when fn returns nil.
func (db *DB) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(New(tx, db.Dialect)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
