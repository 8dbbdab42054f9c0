// Package sqlite provides the embedded SQLite database backend using sqlx
// over the github.com/mattn/go-sqlite3 driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/opshelm/worklog/pkg/database"
)

// SQLiteBackend implements database.Backend against a local SQLite file.
type SQLiteBackend struct {
	path string
	db   *sqlx.DB
}

// NewSQLiteBackend creates a backend for the given database file.
// The path can also be ":memory:" for an in-memory database.
func NewSQLiteBackend(path string) *SQLiteBackend {
	return &SQLiteBackend{path: path}
}

// Connect opens the database file, creating its parent directory if needed,
// and initializes the schema. Safe to run against an existing database.
func (b *SQLiteBackend) Connect(ctx context.Context) error {
	if b.path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := b.path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"

	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// A single writer keeps concurrent statements from tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	b.db = db

	return nil
}

// Close closes the database file.
func (b *SQLiteBackend) Close() error {
	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil

	return err
}

// Execute runs a statement and returns the number of rows affected.
func (b *SQLiteBackend) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translateError(err)
	}

	return res.RowsAffected()
}

// FetchOne returns the first matching row, or nil when nothing matched.
func (b *SQLiteBackend) FetchOne(ctx context.Context, query string, args ...any) (database.Row, error) {
	row := database.Row{}

	err := b.db.QueryRowxContext(ctx, query, args...).MapScan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(err)
	}

	return normalize(row), nil
}

// FetchAll returns every matching row.
func (b *SQLiteBackend) FetchAll(ctx context.Context, query string, args ...any) ([]database.Row, error) {
	rows, err := b.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	out := []database.Row{}
	for rows.Next() {
		row := database.Row{}
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		out = append(out, normalize(row))
	}

	return out, rows.Err()
}

// normalize converts []byte text values to strings so rows look the same
// coming from either backend.
func normalize(row database.Row) database.Row {
	for k, v := range row {
		if bs, ok := v.([]byte); ok {
			row[k] = string(bs)
		}
	}

	return row
}

func (b *SQLiteBackend) Placeholder(index int) string {
	return "?"
}

func (b *SQLiteBackend) IntervalDays(days int) string {
	return fmt.Sprintf("datetime('now', '-%d days')", days)
}

// ILike lowers both operands because SQLite's LIKE case behavior depends on
// collation settings.
func (b *SQLiteBackend) ILike(column, placeholder string) string {
	return fmt.Sprintf("LOWER(%s) LIKE LOWER(%s)", column, placeholder)
}

func (b *SQLiteBackend) ArrayContains(column, placeholder string) string {
	return fmt.Sprintf("%s IN (%s)", column, placeholder)
}

// ListBinding expands the list into one placeholder per value.
func (b *SQLiteBackend) ListBinding(values []string, startIndex int) (string, []any) {
	marks := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		marks[i] = "?"
		args[i] = v
	}

	return strings.Join(marks, ", "), args
}

func (b *SQLiteBackend) Kind() database.Kind {
	return database.KindSQLite
}

// translateError maps driver failures onto the shared database error types.
// Unique and primary key violations become database.ConflictError.
func translateError(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return err
	}

	if se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
		return database.ConflictError{Constraint: constraintName(se)}
	}

	return err
}

// constraintName pulls the violated columns out of SQLite's error text,
// e.g. "UNIQUE constraint failed: memories.key" becomes "memories.key".
func constraintName(se sqlite3.Error) string {
	msg := se.Error()
	for _, prefix := range []string{"UNIQUE constraint failed: ", "PRIMARY KEY constraint failed: "} {
		if rest, ok := strings.CutPrefix(msg, prefix); ok {
			return rest
		}
	}

	return ""
}
