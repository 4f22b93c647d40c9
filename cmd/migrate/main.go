// Command migrate applies or rolls back schema migrations outside the
// serving path. The API applies pending migrations itself at boot; this tool
// exists for rollbacks and for environments that suppress auto-migration.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/tosinxt/lendsqr/internal/config"
	"github.com/tosinxt/lendsqr/internal/database"
	"github.com/tosinxt/lendsqr/internal/database/migrations"
	"github.com/tosinxt/lendsqr/internal/logging"
)

func main() {
	down := flag.Bool("down", false, "rollback the last migration group instead of migrating up")
	flag.Parse()

	if err := run(*down); err != nil {
		log.Fatalf("Migration error: %v", err)
	}
}

func run(down bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.EnsureDatabaseExists(ctx, cfg.Database, logger); err != nil {
		return fmt.Errorf("failed to ensure database exists: %w", err)
	}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer db.Close()

	if down {
		return migrations.Rollback(ctx, db, logger)
	}
	return migrations.Migrate(ctx, db, logger)
}
