// Package sessiondelivery manages delivery layer of sessions.
package sessiondelivery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/pet-atm/internal/authservice"
	"github.com/go-petr/pet-atm/internal/domain"
	"github.com/go-petr/pet-atm/pkg/errorspkg"
	"github.com/go-petr/pet-atm/pkg/tokenpkg"
	"github.com/go-petr/pet-atm/pkg/web"
	"github.com/rs/zerolog"
)

// Service provides service layer interface needed by session delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package sessiondelivery
type Service interface {
	Login(ctx context.Context, creds authservice.Credentials, src authservice.PINSource) (domain.Session, error)
}

// Handler facilitates session delivery layer logic.
type Handler struct {
	service     Service
	tokenMaker  tokenpkg.Maker
	tokenExpiry time.Duration
}

// NewHandler returns session handler.
func NewHandler(ss Service, maker tokenpkg.Maker, tokenExpiry time.Duration) *Handler {
	return &Handler{
		service:     ss,
		tokenMaker:  maker,
		tokenExpiry: tokenExpiry,
	}
}

type loginRequest struct {
	AccountID  string `json:"account_id" binding:"required_without=CardNumber,omitempty,numeric,len=10"`
	CardNumber string `json:"card_number" binding:"required_without=AccountID"`
	CVV        string `json:"cvv" binding:"required_with=CardNumber,omitempty,numeric,len=3"`
	PIN        string `json:"pin" binding:"required,pin"`
}

func (r loginRequest) credentials() authservice.Credentials {
	if r.AccountID != "" {
		return authservice.AccountCredentials{AccountID: r.AccountID}
	}

	return authservice.CardCredentials{CardNumber: r.CardNumber, CVV: r.CVV}
}

type data struct {
	Session domain.Session `json:"session"`
}

// Create handles http request to log in with an account id or a card, and a PIN.
//
// Each request is a login sequence of its own with a single PIN attempt.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req loginRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	session, err := h.service.Login(ctx, req.credentials(), &authservice.PINs{req.PIN})
	if err != nil {
		if errors.Is(err, domain.ErrAuthFailure) {
			gctx.JSON(http.StatusUnauthorized, web.Error(domain.ErrAuthFailure))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	token, payload, err := h.tokenMaker.CreateToken(session.ID, session.AccountID, string(session.Method), h.tokenExpiry)
	if err != nil {
		l.Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusCreated, web.Response{
		AccessToken:          token,
		AccessTokenExpiresAt: payload.ExpiredAt.Format(time.RFC3339),
		Data:                 data{session},
	})
}
