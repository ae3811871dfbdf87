package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/client/*.sql migrations/server/*.sql
var migrationsFS embed.FS

// Schema selects which set of tables a database carries. The client cache and
// the history server keep independent version tables, so both schemas can be
// applied to the same file.
type Schema string

const (
	// SchemaClient holds the active credential slot, the address mapping
	// and the local history ledger.
	SchemaClient Schema = "client"
	// SchemaServer holds per-user email history and subscriptions.
	SchemaServer Schema = "server"
)

func (s Schema) migrationsTable() string {
	return "schema_migrations_" + string(s)
}

// RunMigrations brings db up to the newest version of each given schema.
// Already-applied versions are skipped.
func RunMigrations(db *sql.DB, schemas ...Schema) error {
	if len(schemas) == 0 {
		return errors.New("run migrations: no schema given")
	}
	for _, s := range schemas {
		if err := migrateSchema(db, s); err != nil {
			return fmt.Errorf("migrate %s schema: %w", s, err)
		}
	}
	return nil
}

func migrateSchema(db *sql.DB, s Schema) error {
	switch s {
	case SchemaClient, SchemaServer:
	default:
		return fmt.Errorf("unknown schema %q", s)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+string(s))
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}

	target, err := migratesqlite.WithInstance(db, &migratesqlite.Config{
		MigrationsTable: s.migrationsTable(),
	})
	if err != nil {
		return fmt.Errorf("open migration target: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", target)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
