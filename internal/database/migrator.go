package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/czczc/inspire-papers-viewer/migrations"
)

// MigrationsTable records the applied schema version.
const MigrationsTable = "schema_migrations"

// Migrator applies the small paper schema migrations.
type Migrator struct {
	migrate *migrate.Migrate
	sqlDB   *sql.DB
	logger  zerolog.Logger
}

// NewMigrator creates a migrator over db. An empty dir selects the migrations
// compiled into the binary; otherwise the files are read from dir.
func NewMigrator(db *DB, dir string, logger zerolog.Logger) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if db.pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	src, origin, err := migrationSource(dir)
	if err != nil {
		return nil, err
	}

	sqlDB := stdlib.OpenDBFromPool(db.pool)
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		_ = src.Close()
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = src.Close()
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &Migrator{
		migrate: m,
		sqlDB:   sqlDB,
		logger:  logger.With().Str("migrations", origin).Logger(),
	}, nil
}

// migrationSource opens the embedded migrations or the directory dir, and
// names the origin for logging.
func migrationSource(dir string) (source.Driver, string, error) {
	var fsys fs.FS = migrations.FS
	origin := "embedded"
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, "", fmt.Errorf("migrations path validation failed: %w", err)
		}
		if !info.IsDir() {
			return nil, "", fmt.Errorf("migrations path validation failed: %s is not a directory", dir)
		}
		fsys, origin = os.DirFS(dir), dir
	}

	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, "", fmt.Errorf("failed to read migrations from %s: %w", origin, err)
	}
	return src, origin, nil
}

// Up applies all pending migrations.
func (m *Migrator) Up() error {
	m.logger.Info().Msg("applying migrations")
	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info().Msg("schema already up to date")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	m.logger.Info().Msg("migrations applied")
	return nil
}

// Down rolls back every migration, dropping the small_papers table.
func (m *Migrator) Down() error {
	m.logger.Warn().Msg("rolling back all migrations")
	if err := m.migrate.Down(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info().Msg("nothing to roll back")
			return nil
		}
		return fmt.Errorf("failed to rollback migrations: %w", err)
	}
	return nil
}

// Steps applies n migrations, or rolls back -n when n is negative. Running
// past either end of the history applies what exists and succeeds.
func (m *Migrator) Steps(n int) error {
	m.logger.Info().Int("steps", n).Msg("stepping migrations")
	err := m.migrate.Steps(n)

	var short migrate.ErrShortLimit
	switch {
	case err == nil:
		return nil
	case errors.Is(err, migrate.ErrNoChange), errors.Is(err, os.ErrNotExist):
		m.logger.Info().Msg("no migrations left in that direction")
		return nil
	case errors.As(err, &short):
		m.logger.Info().Uint("short", short.Short).Msg("fewer migrations available than requested")
		return nil
	default:
		return fmt.Errorf("failed to run migration steps: %w", err)
	}
}

// Version returns the applied schema version. A database that has never been
// migrated reports version 0.
func (m *Migrator) Version() (uint, bool, error) {
	v, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Force records version as applied without running it, clearing the dirty flag.
func (m *Migrator) Force(version int) error {
	m.logger.Warn().Int("version", version).Msg("forcing schema version")
	return m.migrate.Force(version)
}

// Close releases the source and the database handle.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if m.sqlDB != nil {
		if err := m.sqlDB.Close(); err != nil && dbErr == nil {
			dbErr = err
		}
	}
	return errors.Join(sourceErr, dbErr)
}
