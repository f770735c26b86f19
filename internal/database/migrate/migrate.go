package migrate

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"

	catalogdb "csvcatalog/internal/database"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// RunMigrations brings the catalog schema up to date. Running it against an
// up-to-date database is a no-op.
func RunMigrations(db *catalogdb.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Debug().Str("driver", db.Driver()).Msg("no migrations to run")
		return nil
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("could not get migration version: %w", err)
	}

	log.Info().
		Str("driver", db.Driver()).
		Uint("version", version).
		Bool("dirty", dirty).
		Msg("migrations completed")
	return nil
}

// Version reports the applied schema version
func Version(db *catalogdb.DB) (uint, bool, error) {
	m, err := newMigrate(db)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("could not get migration version: %w", err)
	}
	return version, dirty, nil
}

// newMigrate wires the embedded SQL for the connection's engine. The migrate
// instance is deliberately not closed: closing it would close the shared *sql.DB.
func newMigrate(db *catalogdb.DB) (*migrate.Migrate, error) {
	var (
		driver database.Driver
		dir    string
		err    error
	)

	switch db.Driver() {
	case catalogdb.DriverPostgres:
		driver, err = postgres.WithInstance(db.DB.DB, &postgres.Config{})
		dir = "migrations/postgres"
	case catalogdb.DriverSQLite:
		driver, err = sqlite.WithInstance(db.DB.DB, &sqlite.Config{})
		dir = "migrations/sqlite"
	default:
		return nil, fmt.Errorf("no migrations for driver %q", db.Driver())
	}
	if err != nil {
		return nil, fmt.Errorf("could not create %s driver: %w", db.Driver(), err)
	}

	d, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("could not create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance(
		"iofs", d,
		db.Driver(), driver,
	)
	if err != nil {
		return nil, fmt.Errorf("could not create migrate instance: %w", err)
	}
	return m, nil
}
