package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/tosinxt/lendsqr/internal/config"
	"github.com/tosinxt/lendsqr/internal/database/migrations"
	"github.com/tosinxt/lendsqr/internal/logging"
)

// Provision runs the full boot sequence: make sure the target database
// exists, open the pooled connection, verify liveness and apply pending
// migrations unless the configuration suppresses them. It runs once,
// sequentially, at startup; the returned handle is the process-wide pool.
func Provision(ctx context.Context, cfg config.DatabaseConfig, autoMigrate bool, logger *logging.Logger) (*bun.DB, error) {
	if err := EnsureDatabaseExists(ctx, cfg, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure database exists: %w", err)
	}

	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		if err := migrations.Migrate(ctx, db, logger); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return db, nil
}

// EnsureDatabaseExists creates the target database if it is absent. It uses
// a short-lived maintenance connection that is always closed before regular
// connections are opened, so the control path never holds a pool slot.
func EnsureDatabaseExists(ctx context.Context, cfg config.DatabaseConfig, logger *logging.Logger) error {
	adminDB, err := sql.Open("postgres", cfg.AdminDSN())
	if err != nil {
		return fmt.Errorf("failed to open maintenance connection: %w", err)
	}
	defer adminDB.Close()

	var exists bool
	err = adminDB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`,
		cfg.DBName,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to query database catalog: %w", err)
	}

	if exists {
		return nil
	}

	logger.Info("creating database", "name", cfg.DBName)

	// CREATE DATABASE does not take bind parameters; quote the identifier.
	_, err = adminDB.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(cfg.DBName))
	if err != nil {
		return fmt.Errorf("failed to create database %q: %w", cfg.DBName, err)
	}

	return nil
}

// Connect opens the pooled connection to the target database and verifies it
// with a ping. A failed ping at this point is a startup precondition failure;
// the caller is expected to abort the process.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return bun.NewDB(sqlDB, pgdialect.New()), nil
}

// CloseWithTimeout releases the pool, giving in-flight connections at most
// timeout to drain. Safe to call more than once; the caller should treat a
// timeout as a signal to terminate rather than hang shutdown.
func CloseWithTimeout(db *bun.DB, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("database close timed out after %s", timeout)
	}
}
