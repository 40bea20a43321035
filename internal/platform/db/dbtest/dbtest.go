// Package dbtest opens the Postgres database named by TEST_DATABASE_URL for
// store integration tests.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"workforce/internal/platform/config"
	"workforce/internal/platform/db"
)

// Open connects and applies the embedded migrations. The test is skipped
// when TEST_DATABASE_URL is not set.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, config.Config{DatabaseURL: dbURL})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	migrate(t, pool)
	return pool
}

// migrationLock serialises migrations across test binaries that go test runs
// in parallel against the same database.
const migrationLock = 74_201

func migrate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()
	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLock); err != nil {
		t.Fatalf("migration lock: %v", err)
	}
	defer func() {
		_, _ = conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLock)
	}()

	if _, err := db.Migrate(ctx, pool, db.MigrationSource("")); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

// InsertEmployee adds an active employee and returns its id. Tests use a
// fresh employee each so they never see each other's rows.
func InsertEmployee(t *testing.T, pool *pgxpool.Pool, first, last, role string, hired time.Time) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(), `
    INSERT INTO employees (first_name, last_name, full_name, role, hired_date)
    VALUES ($1, $2, $1 || ' ' || $2, $3, $4)
    RETURNING id::text
  `, first, last, role, hired.Format(time.DateOnly)).Scan(&id)
	if err != nil {
		t.Fatalf("insert employee: %v", err)
	}
	return id
}
