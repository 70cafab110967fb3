package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationsTable keeps the schema version apart from any other tool sharing the file.
const migrationsTable = "ledgerbridge_schema_migrations"

// SchemaVersion is the migration state of a database file.
type SchemaVersion struct {
	Version uint
	Dirty   bool
}

// RunMigrations brings the database at dbPath up to the latest schema and
// reports the resulting version. A dirty database is refused: it needs a
// manual fix before the service can trust its tables.
func RunMigrations(dbPath string) (SchemaVersion, error) {
	// The migrate driver closes the handle it is given, so it gets its own.
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("open migration database: %w", err)
	}

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{MigrationsTable: migrationsTable})
	if err != nil {
		migrateDB.Close()
		return SchemaVersion{}, fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		driver.Close()
		return SchemaVersion{}, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		driver.Close()
		return SchemaVersion{}, fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if _, dirty, err := m.Version(); err == nil && dirty {
		return SchemaVersion{Dirty: true}, errors.New("database schema is dirty")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return SchemaVersion{}, fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return SchemaVersion{}, fmt.Errorf("read schema version: %w", err)
	}
	return SchemaVersion{Version: version, Dirty: dirty}, nil
}
