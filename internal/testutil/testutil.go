// Package testutil provides database helpers shared by package tests.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/iliyamo/kronos/internal/config"
	"github.com/iliyamo/kronos/internal/database"
)

// TestJWTSecret signs tokens in handler and middleware tests.
const TestJWTSecret = "test-secret-do-not-use"

// SetupTestDB creates a fresh SQLite database in a temp dir with the full
// production schema.  It is closed when the test ends.
func SetupTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(context.Background(), db, "sqlite"); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

// GetTestConfig returns a Config suitable for tests: SQLite, a fixed JWT
// secret and the cheapest bcrypt cost.
func GetTestConfig() config.Config {
	return config.Config{
		Env:             "test",
		DBDriver:        "sqlite",
		JWTSecret:       TestJWTSecret,
		AccessTTLMin:    15,
		RefreshTTLDays:  30,
		SessionTTLHours: 12,
		PasswordHasher:  "bcrypt",
		BcryptCost:      4,
		AdminUsernames:  []string{"admin"},
		PurgeSchedule:   "@hourly",
	}
}
