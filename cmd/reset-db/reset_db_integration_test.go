//go:build integration

package main

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"talentapp/internal/config"
	"talentapp/internal/database"
	"talentapp/internal/observability"
	"talentapp/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupResetTestDB(t *testing.T) (*sql.DB, *database.Manager) {
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	dbManager := database.NewManager(logger)

	testDBURL := os.Getenv("TEST_DATABASE_URL")
	if testDBURL == "" {
		t.Fatal("TEST_DATABASE_URL environment variable must be set for integration tests")
	}

	db, err := dbManager.InitDB(testDBURL)
	require.NoError(t, err)
	return db, dbManager
}

// TestDropAndRecreate_Integration walks the same drop list the utility uses
// and confirms migrations bring back an empty, usable schema.
func TestDropAndRecreate_Integration(t *testing.T) {
	ctx := context.Background()
	db, dbManager := setupResetTestDB(t)
	defer func() {
		_ = db.Close()
	}()

	services.CleanupTestDatabase(db, t)

	// Seed a row so the reset has something to destroy
	_, err := db.ExecContext(ctx, `INSERT INTO users (email, name, role, created_at, updated_at)
	                               VALUES ('reset@test.example', 'Reset Tester', 'participant', NOW(), NOW())`)
	require.NoError(t, err)

	var userCount int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&userCount))
	require.Positive(t, userCount)

	for _, table := range dropOrder {
		_, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	// The users table is gone entirely, not just emptied
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&userCount)
	require.Error(t, err)

	// Recreate the schema and confirm it is empty but usable
	require.NoError(t, dbManager.RunMigrations(db))

	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&userCount))
	assert.Zero(t, userCount)

	var reportCount int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports").Scan(&reportCount), "reports table comes back via migrations")
	assert.Zero(t, reportCount)
}

// TestDropOrder_CoversCleanupTables keeps the utility's drop list aligned with
// the schema the integration cleanup helper maintains.
func TestDropOrder_CoversCleanupTables(t *testing.T) {
	listed := make(map[string]bool, len(dropOrder))
	for _, table := range dropOrder {
		listed[table] = true
	}

	for _, table := range []string{
		"reports", "text_answers", "dimension_scores", "assignments",
		"feedback_library", "benchmarks", "fields", "dimensions",
		"assessments", "users", "groups", "clients", "industries",
	} {
		assert.True(t, listed[table], "drop list misses table %s", table)
	}

	assert.True(t, listed["schema_migrations"], "drop list must include golang-migrate bookkeeping")
}
