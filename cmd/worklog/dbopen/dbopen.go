// Package dbopen resolves which database backend the environment selects and
// builds open functions for it, including the guarded SQLite fallback.
package dbopen

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opshelm/worklog/pkg/config"
	"github.com/opshelm/worklog/pkg/database"
	"github.com/opshelm/worklog/pkg/database/postgres"
	"github.com/opshelm/worklog/pkg/database/sqlite"
	"github.com/opshelm/worklog/pkg/logger"
)

// target is a fully resolved backend choice.
type target struct {
	backend config.Backend
	path    string
	params  config.PostgresParams
}

// resolve applies the backend selection rules. A PostgreSQL selection whose
// configuration cannot be resolved falls back to SQLite only when the
// environment explicitly allows it; otherwise the error tells the operator
// how to proceed.
func resolve(cfg *config.Config, log *slog.Logger) (target, error) {
	sqliteTarget := func() (target, error) {
		path, err := config.SQLitePath(cfg.Database.SQLitePath)
		if err != nil {
			return target{}, err
		}

		return target{backend: config.BackendSQLite, path: path}, nil
	}

	if config.SelectBackend() == config.BackendSQLite {
		return sqliteTarget()
	}

	params, err := config.ResolvePostgresParams()
	if err != nil {
		if config.AllowFallback() {
			log.Warn("PostgreSQL not configured, falling back to SQLite", "error", err)
			return sqliteTarget()
		}

		return target{}, fmt.Errorf(
			"PostgreSQL configuration error: %w\nSet WORKLOG_ALLOW_FALLBACK=1 to allow SQLite fallback, or fix PostgreSQL configuration.",
			err)
	}

	return target{backend: config.BackendPostgreSQL, params: *params}, nil
}

// Open returns an OpenFunc that connects to whichever backend the
// environment selects at the time it is first called.
func Open(cfg *config.Config, log *slog.Logger) database.OpenFunc {
	return func(ctx context.Context) (database.Backend, error) {
		t, err := resolve(cfg, log)
		if err != nil {
			return nil, err
		}

		var backend database.Backend
		switch t.backend {
		case config.BackendPostgreSQL:
			backend = postgres.NewPostgresBackend(postgres.Config{
				Host:     t.params.Host,
				Port:     t.params.Port,
				Database: t.params.Database,
				User:     t.params.User,
				Password: t.params.Password,
			})
		default:
			backend = sqlite.NewSQLiteBackend(t.path)
		}

		if err := backend.Connect(ctx); err != nil {
			return nil, err
		}

		return backend, nil
	}
}

// Location reports which backend would be opened and where it lives, without
// connecting. The PostgreSQL form leaves out the password.
func Location(cfg *config.Config) (config.Backend, string, error) {
	t, err := resolve(cfg, logger.Nop())
	if err != nil {
		return "", "", err
	}

	if t.backend == config.BackendPostgreSQL {
		location := fmt.Sprintf("postgresql://%s@%s:%d/%s",
			t.params.User, t.params.Host, t.params.Port, t.params.Database)
		return t.backend, location, nil
	}

	return t.backend, t.path, nil
}
