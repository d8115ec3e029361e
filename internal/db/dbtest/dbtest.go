// Package dbtest opens a migrated Postgres pool for integration tests.
package dbtest

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/simplrflow/service/internal/db"
	"github.com/simplrflow/service/internal/logger"
)

// Open connects to TEST_DATABASE_URL, applies migrations and empties every table.
// The test is skipped when the variable is unset.
func Open(tb testing.TB) *pgxpool.Pool {
	tb.Helper()
	url := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if url == "" {
		tb.Skip("set TEST_DATABASE_URL to run postgres integration tests")
	}

	log := logger.Nop()
	if err := db.Migrate(url, log); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, url, 4, log)
	if err != nil {
		tb.Fatalf("connect: %v", err)
	}
	tb.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, `TRUNCATE annotations, images, datasets, users CASCADE`); err != nil {
		tb.Fatalf("truncate: %v", err)
	}
	return pool
}

// SeedUser inserts a user row and returns its id.
func SeedUser(tb testing.TB, pool *pgxpool.Pool, id string) string {
	tb.Helper()
	if _, err := pool.Exec(context.Background(), `INSERT INTO users (id) VALUES ($1) ON CONFLICT DO NOTHING`, id); err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return id
}
