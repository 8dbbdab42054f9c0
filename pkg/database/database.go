// Package database defines the backend-neutral persistence contract shared by
// the embedded SQLite backend and the networked PostgreSQL backend. Callers
// assemble SQL from the dialect methods so the same call sites run unchanged
// on either backend.
package database

import "context"

// Row is a single result row keyed by column name. Both backends decode into
// this shape so callers never see driver-specific row types.
type Row = map[string]any

// Kind identifies which backend implementation is in use. It exists for
// logging and diagnostics; query text always comes from the dialect methods,
// never from branching on Kind.
type Kind string

const (
	// KindSQLite is the embedded file-backed backend.
	KindSQLite Kind = "sqlite"

	// KindPostgres is the networked pooled backend.
	KindPostgres Kind = "postgresql"
)

// Backend is the interface both database implementations satisfy. It covers
// the connection lifecycle, the three query verbs, and the SQL fragments that
// differ between the two dialects.
type Backend interface {
	// Connect establishes the connection or pool and prepares the backend
	// for queries. The embedded backend also initializes its schema here.
	Connect(ctx context.Context) error

	// Close releases the connection and any pooled resources.
	Close() error

	// Execute runs a statement that returns no rows and reports the number
	// of rows affected.
	Execute(ctx context.Context, query string, args ...any) (int64, error)

	// FetchOne runs a query and returns the first row, or nil when nothing
	// matched. Absence is not an error.
	FetchOne(ctx context.Context, query string, args ...any) (Row, error)

	// FetchAll runs a query and returns every matching row. The slice is
	// empty, never nil, when nothing matched.
	FetchAll(ctx context.Context, query string, args ...any) ([]Row, error)

	// Placeholder returns the bind placeholder for the 1-based argument
	// index: "?" for SQLite, "$N" for PostgreSQL.
	Placeholder(index int) string

	// IntervalDays returns the SQL expression for the instant N days ago.
	IntervalDays(days int) string

	// ILike returns a case-insensitive LIKE comparison between a column
	// and a placeholder.
	ILike(column, placeholder string) string

	// ArrayContains returns a membership test of a column value against a
	// bound list rendered by ListBinding.
	ArrayContains(column, placeholder string) string

	// ListBinding renders the bind fragment for a list of values starting
	// at the given 1-based placeholder index, plus the args to append.
	// SQLite expands to one placeholder per value; PostgreSQL binds the
	// whole list as a single text[] argument.
	ListBinding(values []string, startIndex int) (string, []any)

	// Kind reports which implementation this is.
	Kind() Kind
}
