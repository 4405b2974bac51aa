package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func migrationSource() (source.Driver, error) {
	return iofs.New(migrationsFS, "migrations")
}

// RunMigrations runs all pending database migrations
func RunMigrations(db *gorm.DB, logger *slog.Logger) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Get underlying sql.DB for migrate library
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sourceDriver, err := migrationSource()
	if err != nil {
		return fmt.Errorf("failed to create migration source driver: %w", err)
	}

	dbDriver, err := postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: "chat_schema_migrations"})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("Database migrations: already up to date")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Database migrations applied", "version", version, "dirty", dirty)
	return nil
}
