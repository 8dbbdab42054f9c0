// Package postgres provides the networked PostgreSQL database backend using
// a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opshelm/worklog/pkg/database"
)

const (
	minConns       = 1
	maxConns       = 10
	connectTimeout = 30 * time.Second

	// acquireBudget bounds how long a query waits for a pooled connection
	// before the caller is told to retry.
	acquireBudget = 5 * time.Second

	// statementTimeout bounds individual statements server-side.
	statementTimeout = 60 * time.Second

	uniqueViolationCode = "23505"
)

// Config identifies the PostgreSQL server and database to connect to.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// dsn renders the config as a connection URL. Credentials are URL-escaped so
// passwords with special characters survive parsing.
func (c Config) dsn() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}

	return u.String()
}

// PostgresBackend implements database.Backend over a pgx connection pool.
// The schema is owned by the shared server and is never created here.
type PostgresBackend struct {
	config Config
	pool   *pgxpool.Pool
}

// NewPostgresBackend creates a backend for the given server config.
func NewPostgresBackend(config Config) *PostgresBackend {
	return &PostgresBackend{config: config}
}

// Connect builds the connection pool and verifies the server is reachable.
func (b *PostgresBackend) Connect(ctx context.Context) error {
	cfg, err := pgxpool.ParseConfig(b.config.dsn())
	if err != nil {
		return fmt.Errorf("failed to parse connection config: %w", err)
	}

	cfg.MinConns = minConns
	cfg.MaxConns = maxConns
	cfg.ConnConfig.ConnectTimeout = connectTimeout
	cfg.ConnConfig.RuntimeParams["statement_timeout"] =
		strconv.FormatInt(statementTimeout.Milliseconds(), 10)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to reach database: %w", err)
	}

	b.pool = pool

	return nil
}

// Close drains and closes the connection pool.
func (b *PostgresBackend) Close() error {
	if b.pool != nil {
		b.pool.Close()
		b.pool = nil
	}

	return nil
}

// acquire checks a connection out of the pool within the acquire budget.
// Running out of budget while the caller's context is still live means the
// pool is exhausted, which is reported as a retryable condition.
func (b *PostgresBackend) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, acquireBudget)
	defer cancel()

	conn, err := b.pool.Acquire(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, database.PoolExhaustedError{}
		}

		return nil, err
	}

	return conn, nil
}

// Execute runs a statement and returns the number of rows affected.
func (b *PostgresBackend) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	conn, err := b.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, translateError(err)
	}

	return tag.RowsAffected(), nil
}

// FetchOne returns the first matching row, or nil when nothing matched.
func (b *PostgresBackend) FetchOne(ctx context.Context, query string, args ...any) (database.Row, error) {
	conn, err := b.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}

	row, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(err)
	}

	return row, nil
}

// FetchAll returns every matching row.
func (b *PostgresBackend) FetchAll(ctx context.Context, query string, args ...any) ([]database.Row, error) {
	conn, err := b.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, translateError(err)
	}
	if out == nil {
		out = []database.Row{}
	}

	return out, nil
}

func (b *PostgresBackend) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (b *PostgresBackend) IntervalDays(days int) string {
	return fmt.Sprintf("NOW() - INTERVAL '%d days'", days)
}

func (b *PostgresBackend) ILike(column, placeholder string) string {
	return fmt.Sprintf("%s ILIKE %s", column, placeholder)
}

func (b *PostgresBackend) ArrayContains(column, placeholder string) string {
	return fmt.Sprintf("%s = ANY(%s::text[])", column, placeholder)
}

// ListBinding binds the whole list as a single text[] argument.
func (b *PostgresBackend) ListBinding(values []string, startIndex int) (string, []any) {
	return fmt.Sprintf("$%d", startIndex), []any{values}
}

func (b *PostgresBackend) Kind() database.Kind {
	return database.KindPostgres
}

// translateError maps driver failures onto the shared database error types.
// Unique violations become database.ConflictError.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return database.ConflictError{Constraint: pgErr.ConstraintName}
	}

	return err
}
