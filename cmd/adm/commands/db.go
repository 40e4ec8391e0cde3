// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"talentapp/internal/database"
	"talentapp/internal/observability"
	contextutils "talentapp/internal/utils"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

// DatabaseCommands returns the database management commands
func DatabaseCommands(dbManager *database.Manager, logger *observability.Logger, db *sql.DB, databaseURL string) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands for the talent platform.

Available commands:
  migrate   - Apply pending schema migrations
  status    - Show the current migration version and dirty state`,
	}

	// Add subcommands
	dbCmd.AddCommand(migrateCmd(dbManager, logger, databaseURL))
	dbCmd.AddCommand(statusCmd(dbManager, logger, db, databaseURL))

	return dbCmd
}

// migrateCmd returns the migrate command
func migrateCmd(dbManager *database.Manager, logger *observability.Logger, databaseURL string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: `Apply all pending golang-migrate migrations from the migrations directory.

The reports table ships as a migration, so a fresh deployment must run this
before completed assignments can produce reports.`,
		RunE: runMigrate(dbManager, logger, databaseURL),
	}
}

// statusCmd returns the status command
func statusCmd(dbManager *database.Manager, logger *observability.Logger, db *sql.DB, databaseURL string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		Long:  `Show the migration version the database is at and whether a failed migration left it dirty.`,
		RunE:  runStatus(dbManager, logger, db, databaseURL),
	}
}

// runMigrate returns a function that applies pending migrations
func runMigrate(dbManager *database.Manager, logger *observability.Logger, databaseURL string) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		m, err := newMigrator(dbManager, databaseURL)
		if err != nil {
			return err
		}
		defer closeMigrator(ctx, logger, m)

		logger.Info(ctx, "Applying migrations", map[string]interface{}{"database_url": maskDatabaseURL(databaseURL)})

		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("No pending migrations.")
			return nil
		}
		if err != nil {
			logger.Error(ctx, "Migration failed", err, map[string]interface{}{"database_url": maskDatabaseURL(databaseURL)})
			return contextutils.WrapError(err, "migration failed")
		}

		version, dirty, err := m.Version()
		if err != nil {
			return contextutils.WrapError(err, "failed to read migration version")
		}

		fmt.Printf("Migrations applied. Current version: %d (dirty: %t)\n", version, dirty)
		logger.Info(ctx, "Migrations applied", map[string]interface{}{"version": version, "dirty": dirty})
		return nil
	}
}

// runStatus returns a function that reports the migration state
func runStatus(dbManager *database.Manager, logger *observability.Logger, db *sql.DB, databaseURL string) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		// Log diagnostic information
		logger.Info(ctx, "Diagnostic info", map[string]interface{}{"config_file": os.Getenv("TALENTAPP_CONFIG_FILE"), "database": describeDatabase(ctx, db)})

		m, err := newMigrator(dbManager, databaseURL)
		if err != nil {
			return err
		}
		defer closeMigrator(ctx, logger, m)

		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("No migrations applied yet.")
			return nil
		}
		if err != nil {
			return contextutils.WrapError(err, "failed to read migration version")
		}

		fmt.Printf("Migration version: %d\n", version)
		if dirty {
			fmt.Println("State: dirty (a migration failed part way; repair the database before migrating again)")
		} else {
			fmt.Println("State: clean")
		}
		return nil
	}
}

// newMigrator builds a golang-migrate instance over the repository's
// migrations directory
func newMigrator(dbManager *database.Manager, databaseURL string) (*migrate.Migrate, error) {
	migrationsPath, err := dbManager.GetMigrationsPath()
	if err != nil {
		return nil, contextutils.WrapError(err, "could not find migrations directory")
	}

	m, err := migrate.New("file://"+filepath.ToSlash(migrationsPath), databaseURL)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to initialize golang-migrate")
	}
	return m, nil
}

// closeMigrator closes the migrator and logs rather than fails on error
func closeMigrator(ctx context.Context, logger *observability.Logger, m *migrate.Migrate) {
	if _, closeErr := m.Close(); closeErr != nil {
		logger.Warn(ctx, "Error closing migrator", map[string]interface{}{"error": closeErr.Error()})
	}
}
