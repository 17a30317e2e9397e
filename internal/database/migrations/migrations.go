package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"ms-scheduling/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var migrationFS embed.FS

// SchemaVersion is the last migration that only creates tables. Later versions seed lookup rows.
const SchemaVersion uint = 1

// MigrateOptions defines configuration options for migration
type MigrateOptions struct {
	// AutoMigrate determines whether to run migrations automatically on startup
	AutoMigrate bool
	// SeedData runs the lookup seed migrations as well as the schema
	SeedData bool
}

func DefaultOptions() MigrateOptions {
	return MigrateOptions{
		AutoMigrate: true,
		SeedData:    true,
	}
}

// Runner handles database migrations. Close also closes the database it was given,
// so callers hand it a dedicated connection pool.
type Runner struct {
	db       *sql.DB
	options  MigrateOptions
	logger   *logger.Logger
	migrator *migrate.Migrate
}

func NewRunner(db *sql.DB, opts MigrateOptions, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Discard()
	}
	return &Runner{
		db:      db,
		options: opts,
		logger:  log,
	}
}

// Initialize prepares the migration system
func (r *Runner) Initialize() error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres migration driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "sql")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	r.migrator = migrator
	return nil
}

func (r *Runner) ensure() error {
	if r.migrator != nil {
		return nil
	}
	return r.Initialize()
}

// RunMigrations brings the schema up to date, seeding lookups when SeedData is set.
// A dirty version left by a crashed run is forced clean before migrating.
func (r *Runner) RunMigrations() error {
	if err := r.ensure(); err != nil {
		return err
	}

	version, dirty, err := r.migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		r.logger.Warn("DATABASE", fmt.Sprintf("Detected dirty migration at version %d, attempting to fix...", version))
		if err := r.migrator.Force(int(version)); err != nil {
			return fmt.Errorf("failed to fix dirty migration: %w", err)
		}
	}

	if r.options.SeedData {
		r.logger.Info("DATABASE", "Running all migrations including seed data...")
		if err := r.migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	} else if errors.Is(err, migrate.ErrNilVersion) || version < SchemaVersion {
		r.logger.Info("DATABASE", "Running schema migrations only...")
		if err := r.migrator.Migrate(SchemaVersion); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to run schema migration: %w", err)
		}
	}

	current, _, err := r.Version()
	if err != nil {
		return err
	}
	r.logger.Info("DATABASE", fmt.Sprintf("Current schema version: %d", current))
	return nil
}

// Version reports the applied version; zero means nothing has run.
func (r *Runner) Version() (uint, bool, error) {
	if err := r.ensure(); err != nil {
		return 0, false, err
	}
	version, dirty, err := r.migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// MigrateUp runs all pending migrations
func (r *Runner) MigrateUp() error {
	if err := r.ensure(); err != nil {
		return err
	}
	if err := r.migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back all migrations
func (r *Runner) MigrateDown() error {
	if err := r.ensure(); err != nil {
		return err
	}
	if err := r.migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// MigrateTo moves up or down to version.
func (r *Runner) MigrateTo(version uint) error {
	if err := r.ensure(); err != nil {
		return err
	}
	if err := r.migrator.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration to version %d failed: %w", version, err)
	}
	return nil
}

// Close frees resources associated with the migrator
func (r *Runner) Close() error {
	if r.migrator == nil {
		return nil
	}
	sourceErr, databaseErr := r.migrator.Close()
	if sourceErr != nil {
		return fmt.Errorf("error closing migrator source: %w", sourceErr)
	}
	if databaseErr != nil {
		return fmt.Errorf("error closing migrator database: %w", databaseErr)
	}
	return nil
}
