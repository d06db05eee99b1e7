package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/billtrack/billtrack/internal/model"
	"github.com/billtrack/billtrack/internal/repository/sqlite"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema drops and recreates the bills and users tables from the
// PostgreSQL migration files, newest first on the way down.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	dir, err := MigrationsDir()
	if err != nil {
		return err
	}

	for _, name := range []string{"000002_bills.down.sql", "000001_users.down.sql", "000001_users.up.sql", "000002_bills.up.sql"} {
		sql, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}

	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// NewSQLiteStore opens a migrated SQLite store in a per-test directory.
func NewSQLiteStore(t testing.TB) *sqlite.Store {
	t.Helper()

	store, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "billtrack.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(store.Close)

	return store
}

// ============================================================================
// Test Data Factories
// ============================================================================

var seq atomic.Int64

// NewTestBill creates an unpaid bill owned by biller with sensible defaults.
func NewTestBill(t testing.TB, biller string, due model.Date) *model.Bill {
	t.Helper()
	now := time.Now().UTC()
	return &model.Bill{
		ID:        ulid.Make().String(),
		Category:  "Utilities",
		Amount:    decimal.RequireFromString("120.50"),
		DueDate:   due,
		Receiver:  "Electric Co",
		Biller:    model.NormalizeEmail(biller),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestUser creates a user with the given role.
func NewTestUser(t testing.TB, email string, userType model.UserType) *model.User {
	t.Helper()
	return &model.User{
		ID:        ulid.Make().String(),
		Email:     model.NormalizeEmail(email),
		UserType:  userType,
		CreatedAt: time.Now().UTC(),
	}
}

// Today returns the current UTC calendar date.
func Today() model.Date {
	return model.DateOf(time.Now().UTC())
}

// UniqueEmail generates a unique email for tests.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, seq.Add(1))
}

// MigrationsDir returns the PostgreSQL migrations directory.
func MigrationsDir() (string, error) {
	root, err := ProjectRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "internal", "repository", "migrations"), nil
}
