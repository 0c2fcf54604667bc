// Package main applies the embedded schema migrations to the configured database.
package main

import (
	"github.com/rs/zerolog/log"

	"github.com/go-petr/pet-atm/internal/middleware"
	"github.com/go-petr/pet-atm/internal/pgstore"
	"github.com/go-petr/pet-atm/pkg/configpkg"
	"github.com/go-petr/pet-atm/pkg/dbpkg"

	_ "github.com/lib/pq"
)

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to database")
	}
	defer db.Close()

	before, after, err := pgstore.Migrate(db)
	if err != nil {
		logger.Fatal().Err(err).Uint("version", before).Msg("migration failed")
	}

	logger.Info().Uint("preMigrationVersion", before).Uint("postMigrationVersion", after).Msg("migration status")
}
