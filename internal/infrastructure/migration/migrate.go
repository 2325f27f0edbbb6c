package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Migrator applies SQL migration pairs from a directory against postgres
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// New creates a migrator over an existing database connection
func New(db *sql.DB, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration: failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migration: failed to create migrate instance: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{migrate: m, logger: logger.Named("migration")}, nil
}

// Up applies all pending migrations. Already being up to date is not an error.
func (m *Migrator) Up() error {
	m.logger.Info("Applying pending migrations")

	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("No pending migrations")
			return nil
		}
		return fmt.Errorf("migration: up failed: %w", err)
	}

	version, dirty, _ := m.migrate.Version()
	m.logger.Info("Migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Down rolls back every applied migration
func (m *Migrator) Down() error {
	m.logger.Warn("Rolling back ALL migrations")

	if err := m.migrate.Down(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("Nothing to roll back")
			return nil
		}
		return fmt.Errorf("migration: down failed: %w", err)
	}

	m.logger.Info("All migrations rolled back")
	return nil
}

// Steps applies n migrations forward, or rolls back -n
func (m *Migrator) Steps(n int) error {
	m.logger.Info("Stepping migrations", zap.Int("steps", n))

	if err := m.migrate.Steps(n); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("No change")
			return nil
		}
		return fmt.Errorf("migration: step failed: %w", err)
	}
	return nil
}

// GoTo migrates up or down to the exact version
func (m *Migrator) GoTo(version uint) error {
	m.logger.Info("Migrating to version", zap.Uint("version", version))

	if err := m.migrate.Migrate(version); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("Already at version", zap.Uint("version", version))
			return nil
		}
		return fmt.Errorf("migration: goto failed: %w", err)
	}
	return nil
}

// Version returns the current schema version and whether it is dirty
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migration: failed to get version: %w", err)
	}
	return version, dirty, nil
}

// Force overwrites the recorded version without running any SQL. Used to
// recover from a dirty state after a failed migration.
func (m *Migrator) Force(version int) error {
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("migration: force failed: %w", err)
	}
	m.logger.Warn("Migration version forced", zap.Int("version", version))
	return nil
}

// Drop removes every object in the database
func (m *Migrator) Drop() error {
	m.logger.Warn("Dropping all database objects")

	if err := m.migrate.Drop(); err != nil {
		return fmt.Errorf("migration: drop failed: %w", err)
	}
	return nil
}

// Close releases the source and database handles
func (m *Migrator) Close() error {
	srcErr, dbErr := m.migrate.Close()
	if srcErr != nil {
		return fmt.Errorf("migration: failed to close source: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("migration: failed to close database: %w", dbErr)
	}
	return nil
}
