package postgres

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations applies every pending migration embedded in the binary.
// Already-applied migrations are skipped, so it is safe on every startup.
func RunMigrations(dbURL string, logger *zap.Logger) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, convertToPgx5URL(dbURL))
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("Empty database, applying all migrations")
	case err != nil:
		return fmt.Errorf("failed to read migration version: %w", err)
	case dirty:
		// A previous run failed partway. Step back so Up retries it.
		logger.Warn("Dirty migration state detected, resetting to retry", zap.Uint("version", version))
		if err := m.Force(dirtyResetTarget(version)); err != nil {
			return fmt.Errorf("failed to reset dirty migration: %w", err)
		}
	default:
		logger.Info("Current migration version", zap.Uint("version", version))
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("Database is up to date, no migrations to apply")
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	if version, _, err := m.Version(); err == nil {
		logger.Info("Migrations applied successfully", zap.Uint("version", version))
	}
	return nil
}

// dirtyResetTarget is the version to force after a half-applied migration:
// the one before it, or no version at all when the first migration failed.
func dirtyResetTarget(version uint) int {
	target := int(version) - 1
	if target < 1 {
		return database.NilVersion
	}
	return target
}

// convertToPgx5URL rewrites postgres:// URLs to the pgx5:// scheme the
// migrate pgx v5 driver registers under.
func convertToPgx5URL(dbURL string) string {
	for _, prefix := range []string{"postgresql:", "postgres:"} {
		if strings.HasPrefix(dbURL, prefix) {
			return "pgx5:" + strings.TrimPrefix(dbURL, prefix)
		}
	}
	return dbURL
}
