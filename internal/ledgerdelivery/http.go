// Package ledgerdelivery manages delivery layer of balance operations and statements.
package ledgerdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/pet-atm/internal/domain"
	"github.com/go-petr/pet-atm/internal/middleware"
	"github.com/go-petr/pet-atm/pkg/errorspkg"
	"github.com/go-petr/pet-atm/pkg/web"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service provides service layer interface needed by ledger delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package ledgerdelivery
type Service interface {
	Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error)
	Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error)
	Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (domain.TransferResult, error)
	ChangePIN(ctx context.Context, accountID, oldPIN, newPIN string) error
	History(ctx context.Context, accountID string, limit int32) ([]domain.Transaction, error)
	Statement(ctx context.Context, accountID string, month, year int) ([]domain.Transaction, error)
}

// Handler facilitates ledger delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns ledger handler.
func NewHandler(ls Service) *Handler {
	return &Handler{service: ls}
}

func errorStatus(err error) (int, error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidAccount):
		return http.StatusBadRequest, err
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, domain.ErrInsufficientFunds
	case errors.Is(err, domain.ErrAuthFailure):
		return http.StatusUnauthorized, domain.ErrAuthFailure
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, domain.ErrAccountNotFound
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return http.StatusConflict, domain.ErrConcurrencyConflict
	}

	return http.StatusInternalServerError, errorspkg.ErrInternal
}

func abort(gctx *gin.Context, err error) {
	status, public := errorStatus(err)
	gctx.JSON(status, web.Error(public))
}

// bind parses the JSON body into req and returns the session of the caller.
func bind(gctx *gin.Context, req any) (domain.Session, bool) {
	l := zerolog.Ctx(gctx.Request.Context())

	session, err := middleware.GetSession(gctx)
	if err != nil {
		gctx.JSON(http.StatusUnauthorized, web.Error(err))
		return session, false
	}

	if err := gctx.ShouldBindJSON(req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return session, false
	}

	return session, true
}

type amountRequest struct {
	Amount string `json:"amount" binding:"required,amount"`
}

type balanceData struct {
	Balance decimal.Decimal `json:"balance"`
}

// Deposit handles http request to credit the account of the session.
func (h *Handler) Deposit(gctx *gin.Context) {
	var req amountRequest

	session, ok := bind(gctx, &req)
	if !ok {
		return
	}

	balance, err := h.service.Deposit(gctx.Request.Context(), session.AccountID, decimal.RequireFromString(req.Amount))
	if err != nil {
		abort(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: balanceData{balance}})
}

// Withdraw handles http request to debit the account of the session.
func (h *Handler) Withdraw(gctx *gin.Context) {
	var req amountRequest

	session, ok := bind(gctx, &req)
	if !ok {
		return
	}

	balance, err := h.service.Withdraw(gctx.Request.Context(), session.AccountID, decimal.RequireFromString(req.Amount))
	if err != nil {
		abort(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: balanceData{balance}})
}

type transferRequest struct {
	ToAccountID string `json:"to_account_id" binding:"required"`
	Amount      string `json:"amount" binding:"required,amount"`
}

type transferData struct {
	Balance decimal.Decimal    `json:"balance"`
	Entry   domain.Transaction `json:"entry"`
}

// Transfer handles http request to move money from the account of the session.
//
// Only the sender side of the result is returned.
func (h *Handler) Transfer(gctx *gin.Context) {
	var req transferRequest

	session, ok := bind(gctx, &req)
	if !ok {
		return
	}

	res, err := h.service.Transfer(gctx.Request.Context(), session.AccountID, req.ToAccountID, decimal.RequireFromString(req.Amount))
	if err != nil {
		abort(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: transferData{Balance: res.FromBalance, Entry: res.FromEntry}})
}

type changePINRequest struct {
	OldPIN string `json:"old_pin" binding:"required,pin"`
	NewPIN string `json:"new_pin" binding:"required,pin"`
}

// ChangePIN handles http request to replace the PIN of the session's account.
func (h *Handler) ChangePIN(gctx *gin.Context) {
	var req changePINRequest

	session, ok := bind(gctx, &req)
	if !ok {
		return
	}

	if err := h.service.ChangePIN(gctx.Request.Context(), session.AccountID, req.OldPIN, req.NewPIN); err != nil {
		abort(gctx, err)
		return
	}

	gctx.Status(http.StatusNoContent)
}

type listRequest struct {
	Month int   `form:"month" binding:"required_with=Year,omitempty,min=1,max=12"`
	Year  int   `form:"year" binding:"required_with=Month,omitempty,min=1"`
	Limit int32 `form:"limit" binding:"omitempty,min=1,max=100"`
}

type transactionsData struct {
	Transactions []domain.Transaction `json:"transactions"`
}

// List handles http request to list log entries of the session's account.
//
// With month and year it returns the statement of that month, otherwise the latest entries.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	session, err := middleware.GetSession(gctx)
	if err != nil {
		gctx.JSON(http.StatusUnauthorized, web.Error(err))
		return
	}

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	var items []domain.Transaction

	if req.Month != 0 {
		items, err = h.service.Statement(ctx, session.AccountID, req.Month, req.Year)
	} else {
		items, err = h.service.History(ctx, session.AccountID, req.Limit)
	}

	if err != nil {
		abort(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: transactionsData{items}})
}
