// Package httpserver manages server creation and api routing.
package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-atm/internal/accountdelivery"
	"github.com/go-petr/pet-atm/internal/accountservice"
	"github.com/go-petr/pet-atm/internal/authservice"
	"github.com/go-petr/pet-atm/internal/ledgerdelivery"
	"github.com/go-petr/pet-atm/internal/ledgerservice"
	"github.com/go-petr/pet-atm/internal/ledgerstore"
	"github.com/go-petr/pet-atm/internal/metrics"
	"github.com/go-petr/pet-atm/internal/middleware"
	"github.com/go-petr/pet-atm/internal/sessiondelivery"
	"github.com/go-petr/pet-atm/pkg/configpkg"
	"github.com/go-petr/pet-atm/pkg/pinpkg"
	"github.com/go-petr/pet-atm/pkg/tokenpkg"
	"github.com/go-petr/pet-atm/pkg/web"
)

// Server holds the store, handlers router and configuration.
type Server struct {
	Store  ledgerstore.Store
	Engine *gin.Engine
	Config configpkg.Config
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
func New(store ledgerstore.Store, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	minBalance, err := config.MinBalanceDecimal()
	if err != nil {
		return nil, fmt.Errorf("invalid minimum balance %q: %w", config.MinBalance, err)
	}

	hasher, err := pinpkg.NewHasher(config.PINHashIterations)
	if err != nil {
		return nil, fmt.Errorf("cannot create pin hasher: %w", err)
	}

	tokenMaker, err := tokenpkg.NewMaker(config.TokenType, config.TokenSymmetricKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	accountService := accountservice.New(store, hasher, minBalance)
	ledgerService := ledgerservice.New(store, hasher, minBalance)
	authService := authservice.New(store, hasher, config.MaxPINAttempts)

	accountHandler := accountdelivery.NewHandler(accountService)
	ledgerHandler := ledgerdelivery.NewHandler(ledgerService)
	sessionHandler := sessiondelivery.NewHandler(authService, tokenMaker, config.AccessTokenDuration)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := web.RegisterValidators(v); err != nil {
			return nil, errors.New("cannot register pin and amount validators")
		}
	}

	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(gctx *gin.Context) {
		gctx.JSON(http.StatusOK, web.Response{Data: gin.H{"status": "ok"}})
	})
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	engine.POST("/accounts", accountHandler.Create)
	engine.POST("/sessions", sessionHandler.Create)

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.GET("/accounts/me", accountHandler.Get)
	authRoutes.PUT("/accounts/me/pin", ledgerHandler.ChangePIN)
	authRoutes.POST("/deposits", ledgerHandler.Deposit)
	authRoutes.POST("/withdrawals", ledgerHandler.Withdraw)
	authRoutes.POST("/transfers", ledgerHandler.Transfer)
	authRoutes.GET("/transactions", ledgerHandler.List)

	server := &Server{
		Store:  store,
		Engine: engine,
		Config: config,
	}

	return server, nil
}
