// Package testdb provides database helpers for integration tests: opening
// a connection from the test environment, bringing the schema up to date,
// and resetting table contents between tests.
//
// Integration tests are opt-in. They run only when TUBETONE_TEST_DATABASE_URL
// points at a disposable PostgreSQL database; otherwise they skip.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// EnvDatabaseURL is the environment variable holding the test database URL.
const EnvDatabaseURL = "TUBETONE_TEST_DATABASE_URL"

// tables lists every application table, in an order safe to truncate.
var tables = []string{"tasks", "cache_entries"}

// Open connects to the test database and migrates its schema, skipping the
// test when no test database is configured. The connection is closed when
// the test finishes.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv(EnvDatabaseURL)
	if url == "" {
		t.Skipf("%s not set, skipping integration test", EnvDatabaseURL)
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}

	if err := migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// Reset truncates all application tables so each test starts clean.
func Reset(t *testing.T, db *sql.DB) {
	t.Helper()

	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			t.Fatalf("failed to truncate %s: %v", table, err)
		}
	}
}

func migrate(db *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting migration dialect: %w", err)
	}
	return goose.Up(db, migrationsDir())
}

// migrationsDir resolves the repository's migrations directory relative to
// this source file, so tests work from any package directory.
func migrationsDir() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "migrations")
}
