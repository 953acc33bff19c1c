//go:build integration

package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyang/promptledger/internal/adapter/postgres"
)

// SetupTestDB connects to the test database and applies the embedded
// migrations. It skips the test if TEST_DATABASE_URL is not set.
// Every call shares one database; tests isolate themselves with unique names.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := migratedURL(t)

	pool, err := postgres.Connect(context.Background(), url, 0)
	if err != nil {
		t.Fatalf("connect to test DB: %v", err)
	}

	t.Cleanup(func() { pool.Close() })
	return pool
}

// SetupTestPool is SetupTestDB with an exact pool size, below the floor
// postgres.Connect enforces, for tests that exercise connection pressure.
func SetupTestPool(t *testing.T, maxConns int32) *pgxpool.Pool {
	t.Helper()
	url := migratedURL(t)

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		t.Fatalf("parse test DB url: %v", err)
	}
	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("connect to test DB: %v", err)
	}

	t.Cleanup(func() { pool.Close() })
	return pool
}

func migratedURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}
	if err := postgres.Migrate(url); err != nil {
		t.Fatalf("migrate test DB: %v", err)
	}
	return url
}
