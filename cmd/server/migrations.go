package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
)

// migrationsDir is where the goose SQL migrations live, relative to the
// working directory the server is launched from.
const migrationsDir = "migrations"

// runMigrations brings the database schema up to date at startup.
func runMigrations(db *sql.DB, appLogger *slog.Logger) error {
	dir := migrationsDir
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("migrations directory not found at %s: %w", dir, err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	appLogger.Info("running database migrations", "dir", dir)
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	appLogger.Info("database schema up to date", "version", version)

	return nil
}
