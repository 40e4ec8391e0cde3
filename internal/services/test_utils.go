//go:build integration

package services

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"talentapp/internal/config"
	"talentapp/internal/database"
	"talentapp/internal/observability"

	"github.com/stretchr/testify/require"
)

// SharedTestDBSetup provides a clean, isolated database for each integration test
// Uses the optimized CleanupTestDatabase function for consistent cleanup
func SharedTestDBSetup(t *testing.T) *sql.DB {
	observabilityLogger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	dbManager := database.NewManager(observabilityLogger)

	// Require TEST_DATABASE_URL environment variable to be set
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Fatal("TEST_DATABASE_URL environment variable must be set for integration tests")
	}

	db, err := dbManager.InitDB(databaseURL)
	require.NoError(t, err)

	// Use the optimized cleanup function
	CleanupTestDatabase(db, t)

	return db
}

// cleanupDatabase performs the core database cleanup operations
// This is the shared implementation used by both CleanupTestDatabase and SharedTestSuite.Cleanup
func cleanupDatabase(db *sql.DB, logger *observability.Logger) {
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		if logger != nil {
			logger.Error(ctx, "Failed to begin cleanup transaction", err)
		}
		return
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	// Fast cleanup with batched operations. Children first so partially
	// provisioned schemas (reports table may be absent) still clean up.
	cleanupQueries := []string{
		"TRUNCATE TABLE reports CASCADE",
		"TRUNCATE TABLE text_answers CASCADE",
		"TRUNCATE TABLE dimension_scores CASCADE",
		"TRUNCATE TABLE assignments CASCADE",
		"TRUNCATE TABLE feedback_library CASCADE",
		"TRUNCATE TABLE benchmarks CASCADE",
		"TRUNCATE TABLE fields CASCADE",
		"TRUNCATE TABLE dimensions CASCADE",
		"TRUNCATE TABLE assessments CASCADE",
		"TRUNCATE TABLE users CASCADE",
		"TRUNCATE TABLE groups CASCADE",
		"TRUNCATE TABLE clients CASCADE",
		"TRUNCATE TABLE industries CASCADE",
	}

	for _, query := range cleanupQueries {
		_, err := tx.ExecContext(ctx, query)
		if err != nil {
			if logger != nil {
				logger.Warn(ctx, "Could not execute cleanup query", map[string]interface{}{
					"query": query,
				})
			}
		}
	}

	// Reset sequences
	sequenceQueries := []string{
		"ALTER SEQUENCE users_id_seq RESTART WITH 1",
		"ALTER SEQUENCE clients_id_seq RESTART WITH 1",
		"ALTER SEQUENCE assessments_id_seq RESTART WITH 1",
		"ALTER SEQUENCE assignments_id_seq RESTART WITH 1",
		"ALTER SEQUENCE dimension_scores_id_seq RESTART WITH 1",
		"ALTER SEQUENCE text_answers_id_seq RESTART WITH 1",
	}

	for _, query := range sequenceQueries {
		_, err := tx.ExecContext(ctx, query)
		if err != nil {
			if logger != nil {
				logger.Warn(ctx, "Could not reset sequence", map[string]interface{}{
					"query": query,
				})
			}
		}
	}

	err = tx.Commit()
	if err != nil {
		if logger != nil {
			logger.Error(ctx, "Failed to commit cleanup transaction", err)
		}
	}
}

// CleanupTestDatabase cleans up the database for integration tests
// This function can be used by any integration test that needs to clean up the database
// Optimized to use batched transactions for better performance
func CleanupTestDatabase(db *sql.DB, t *testing.T) {
	cleanupDatabase(db, nil)
}
