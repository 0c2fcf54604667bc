// Package integrationtest provides db helpers used in integration tests.
package integrationtest

import (
	"database/sql"
	"testing"

	"github.com/go-petr/pet-atm/cmd/httpserver"
	"github.com/go-petr/pet-atm/internal/middleware"
	"github.com/go-petr/pet-atm/internal/pgstore"
	"github.com/go-petr/pet-atm/pkg/configpkg"
	"github.com/go-petr/pet-atm/pkg/dbpkg"
	"github.com/rs/zerolog"

	_ "github.com/lib/pq"
)

// ConfigPath is relative to the package directories two levels below the module root.
const ConfigPath = "../../configs"

// Config loads the application config used by integration tests.
func Config(t *testing.T) configpkg.Config {
	t.Helper()

	config, err := configpkg.Load(ConfigPath)
	if err != nil {
		t.Fatalf(`configpkg.Load(%q) returned error: %v`, ConfigPath, err)
	}

	return config
}

// SetupServer returns test server backed by pgstore that cleans up database after each integration test.
func SetupServer(t *testing.T) *httpserver.Server {
	config := Config(t)

	zerolog.SetGlobalLevel(zerolog.FatalLevel)

	logger := middleware.CreateLogger(config)

	db := SetupDB(t, config.DBDriver, config.DBSource)

	server, err := httpserver.New(pgstore.New(db, config.LockTimeout), logger, config)
	if err != nil {
		t.Fatalf(`httpserver.New(store, logger, config) returned error: %v`, err)
	}

	return server
}

// Flush flushes all ledger tables without droping.
func Flush(t *testing.T, db *sql.DB) {
	t.Helper()

	if _, err := db.Exec(`TRUNCATE TABLE accounts, transactions CASCADE`); err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}
}

// SetupDB sets up a migrated database connection for testing and cleans it once the test is done.
func SetupDB(t *testing.T, driver, source string) *sql.DB {
	t.Helper()

	db, err := dbpkg.Setup(driver, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	if _, _, err := pgstore.Migrate(db); err != nil {
		t.Fatalf("pgstore.Migrate(db) returned error: %v", err)
	}

	t.Cleanup(func() {
		Flush(t, db)

		if err := db.Close(); err != nil {
			t.Fatalf("db cleanup failed. err: %v", err)
		}
	})

	return db
}

// SetupTX sets up a database transaction to be used in tests.
//
// Once the tests are done it will rollback the transaction.
func SetupTX(t *testing.T, driver, source string) *sql.Tx {
	t.Helper()

	db, err := dbpkg.Setup(driver, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	if _, _, err := pgstore.Migrate(db); err != nil {
		t.Fatalf("pgstore.Migrate(db) returned error: %v", err)
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("db.Begin() failed: %v", err)
	}

	t.Cleanup(func() {
		if err := tx.Rollback(); err != nil {
			t.Fatalf("tx.Rollback() failed: %v", err)
		}
		if err := db.Close(); err != nil {
			t.Fatalf("db.Close() failed: %v", err)
		}
	})

	return tx
}
