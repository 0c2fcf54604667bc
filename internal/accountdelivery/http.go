// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/pet-atm/internal/accountservice"
	"github.com/go-petr/pet-atm/internal/domain"
	"github.com/go-petr/pet-atm/internal/middleware"
	"github.com/go-petr/pet-atm/pkg/cardpkg"
	"github.com/go-petr/pet-atm/pkg/errorspkg"
	"github.com/go-petr/pet-atm/pkg/web"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	Create(ctx context.Context, arg accountservice.CreateParams) (domain.Account, error)
	Get(ctx context.Context, id string) (domain.Account, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns account handler.
func NewHandler(as Service) Handler {
	return Handler{service: as}
}

type data struct {
	Account domain.Account `json:"account"`
}

type createRequest struct {
	Name           string `json:"name" binding:"required,min=2"`
	PIN            string `json:"pin" binding:"required,pin"`
	OpeningBalance string `json:"opening_balance" binding:"required,amount"`
	WithCard       bool   `json:"with_card"`
}

// Create handles http request to open an account.
//
// The response is the only place the full card number and CVV are ever shown.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	balance, err := decimal.NewFromString(req.OpeningBalance)
	if err != nil {
		gctx.JSON(http.StatusBadRequest, web.Error(domain.ErrInvalidAmount))
		return
	}

	account, err := h.service.Create(ctx, accountservice.CreateParams{
		Name:           req.Name,
		PIN:            req.PIN,
		OpeningBalance: balance,
		WithCard:       req.WithCard,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			gctx.JSON(http.StatusBadRequest, web.Error(err))
		case errors.Is(err, domain.ErrAccountExists):
			gctx.JSON(http.StatusConflict, web.Error(domain.ErrAccountExists))
		default:
			gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		}

		return
	}

	gctx.JSON(http.StatusCreated, web.Response{Data: data{account}})
}

// Get handles http request to show the account of the session.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	session, err := middleware.GetSession(gctx)
	if err != nil {
		gctx.JSON(http.StatusUnauthorized, web.Error(err))
		return
	}

	account, err := h.service.Get(ctx, session.AccountID)
	if err != nil {
		l.Info().Err(err).Send()

		if errors.Is(err, domain.ErrAccountNotFound) {
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	if account.Card != nil {
		account.Card = &domain.Card{
			Number: cardpkg.Mask(account.Card.Number),
			Expiry: account.Card.Expiry,
		}
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{account}})
}
