// Package migrations holds the versioned schema migrations and the runner
// that applies them. Applied migrations are recorded in bun's migration
// ledger table, so reruns are no-ops.
package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/tosinxt/lendsqr/internal/logging"
)

// Migrations is the registry all migration files register into. Entries are
// applied in ascending order of their timestamp-prefixed names.
var Migrations = migrate.NewMigrations()

// Migrate applies all pending migrations. Initialising the migrator creates
// the ledger tables on first run, so this is safe against a fresh database.
func Migrate(ctx context.Context, db *bun.DB, logger *logging.Logger) error {
	migrator := migrate.NewMigrator(db, Migrations)

	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize migration ledger: %w", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	if group.IsZero() {
		logger.Info("database schema up to date")
		return nil
	}

	logger.Info("migrations applied", "group", group.String())
	return nil
}

// Rollback reverts the last applied migration group. Used by the migrate
// CLI only, never from the serving path.
func Rollback(ctx context.Context, db *bun.DB, logger *logging.Logger) error {
	migrator := migrate.NewMigrator(db, Migrations)

	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize migration ledger: %w", err)
	}

	group, err := migrator.Rollback(ctx)
	if err != nil {
		return fmt.Errorf("failed to rollback migrations: %w", err)
	}

	if group.IsZero() {
		logger.Info("no migrations to rollback")
		return nil
	}

	logger.Info("migrations rolled back", "group", group.String())
	return nil
}
