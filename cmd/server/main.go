// Package main starts the ATM ledger API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-petr/pet-atm/cmd/httpserver"
	"github.com/go-petr/pet-atm/internal/ledgerstore"
	"github.com/go-petr/pet-atm/internal/memstore"
	"github.com/go-petr/pet-atm/internal/middleware"
	"github.com/go-petr/pet-atm/internal/pgstore"
	"github.com/go-petr/pet-atm/pkg/configpkg"
	"github.com/go-petr/pet-atm/pkg/dbpkg"

	_ "github.com/lib/pq"
)

const shutdownTimeout = 30 * time.Second

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	if err := run(config, logger); err != nil {
		logger.Fatal().Err(err).Send()
	}

	logger.Info().Msg("server stopped")
}

// run serves the API until SIGINT or SIGTERM, or until the listener fails.
// The store is closed before run returns.
func run(config configpkg.Config, logger zerolog.Logger) error {
	store, closeStore, err := openStore(config)
	if err != nil {
		return fmt.Errorf("cannot open store: %w", err)
	}
	defer closeStore()

	if config.Environement != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	server, err := httpserver.New(store, logger, config)
	if err != nil {
		return fmt.Errorf("cannot create server: %w", err)
	}

	srv := &http.Server{
		Addr:              config.ServerAddress,
		Handler:           server,
		ReadHeaderTimeout: 15 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		logger.Info().Str("addr", config.ServerAddress).Str("driver", config.DBDriver).Msg("ATM API SERVER HAS STARTED")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		return fmt.Errorf("cannot start server: %w", err)
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}

	return nil
}

// openStore returns the ledger store selected by DB_DRIVER.
func openStore(config configpkg.Config) (ledgerstore.Store, func(), error) {
	if config.DBDriver == "memory" {
		return memstore.New(config.LockTimeout), func() {}, nil
	}

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		return nil, nil, err
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("db close")
		}
	}

	return pgstore.New(db, config.LockTimeout), closeDB, nil
}
