package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/okian/drivescore/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrateUp applies all pending migrations. No pending migrations is not an
// error.
func (s *SQLStore) MigrateUp(ctx context.Context) error {
	m, err := s.newMigrate(ctx)
	if err != nil {
		return err
	}
	// Closing m would close the shared pool.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func (s *SQLStore) MigrateDown(ctx context.Context) error {
	m, err := s.newMigrate(ctx)
	if err != nil {
		return err
	}

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current schema version and dirty flag. A
// database without migrations reports version 0.
func (s *SQLStore) MigrateVersion(ctx context.Context) (version uint, dirty bool, err error) {
	m, err := s.newMigrate(ctx)
	if err != nil {
		return 0, false, err
	}

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *SQLStore) newMigrate(ctx context.Context) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	var driver database.Driver
	switch s.driver {
	case DriverSQLite:
		driver, err = sqlitemigrate.WithInstance(s.db, &sqlitemigrate.Config{})
	case DriverPostgres:
		driver, err = pgxmigrate.WithInstance(s.db, &pgxmigrate.Config{})
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedDriver, s.driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migration driver: %w", s.driver, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, s.driver, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{ctx: ctx, logger: s.logger.Named("migrate")}
	return m, nil
}

// migrateLogger implements migrate.Logger.
type migrateLogger struct {
	ctx    context.Context
	logger logger.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(l.ctx, fmt.Sprintf(format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return false
}
