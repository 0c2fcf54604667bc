package pgstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies all pending schema migrations and returns the schema versions
// before and after the run.
//
// The migrate instance is not closed since closing it closes db as well.
func Migrate(db *sql.DB) (before, after uint, err error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return 0, 0, fmt.Errorf("iofs.New: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return 0, 0, fmt.Errorf("postgres.WithInstance: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return 0, 0, fmt.Errorf("migrate.NewWithInstance: %w", err)
	}

	before, _, err = m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, 0, fmt.Errorf("m.Version: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return before, before, fmt.Errorf("m.Up: %w", err)
	}

	after, _, err = m.Version()
	if err != nil {
		return before, before, fmt.Errorf("m.Version: %w", err)
	}

	return before, after, nil
}
