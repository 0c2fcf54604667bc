// Package pgstore implements the ledger store on top of PostgreSQL.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-petr/pet-atm/internal/accountrepo"
	"github.com/go-petr/pet-atm/internal/domain"
	"github.com/go-petr/pet-atm/internal/ledgerstore"
	"github.com/go-petr/pet-atm/internal/transactionrepo"
	"github.com/go-petr/pet-atm/pkg/dbpkg"
	"github.com/go-petr/pet-atm/pkg/errorspkg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("pet-atm/pgstore")

// Store runs ledger transactions against PostgreSQL.
type Store struct {
	db           *sql.DB
	lockTimeout  time.Duration
	accounts     *accountrepo.RepoPGS
	transactions *transactionrepo.RepoPGS
}

// New returns Store backed by db.
//
// lockTimeout bounds the wait for row locks inside a transaction. Zero waits forever.
func New(db *sql.DB, lockTimeout time.Duration) *Store {
	return &Store{
		db:           db,
		lockTimeout:  lockTimeout,
		accounts:     accountrepo.NewRepoPGS(db),
		transactions: transactionrepo.NewRepoPGS(db),
	}
}

// ExecTx runs fn inside a database transaction.
func (s *Store) ExecTx(ctx context.Context, fn func(q ledgerstore.Querier) error) (err error) {
	ctx, span := tracer.Start(ctx, "pgstore.ExecTx", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.Int64("db.lock_timeout_ms", s.lockTimeout.Milliseconds()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	l := zerolog.Ctx(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Msg("begin tx")
		return mapTxError(err)
	}

	if s.lockTimeout > 0 {
		setTimeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, setTimeout); err != nil {
			l.Error().Err(err).Msg("set lock_timeout")
			return rollback(ctx, tx, mapTxError(err))
		}
	}

	q := &querier{
		accounts:     accountrepo.NewRepoPGS(tx),
		transactions: transactionrepo.NewRepoPGS(tx),
	}

	if err := fn(q); err != nil {
		return rollback(ctx, tx, err)
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Msg("commit tx")
		return mapTxError(err)
	}

	return nil
}

func rollback(ctx context.Context, tx *sql.Tx, err error) error {
	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		zerolog.Ctx(ctx).Error().Err(rbErr).Msg("rollback tx")
	}

	return err
}

func mapTxError(err error) error {
	switch {
	case dbpkg.IsConcurrencyConflict(err):
		return domain.ErrConcurrencyConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}

	return errorspkg.ErrInternal
}

// GetAccount returns the committed state of the account.
func (s *Store) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	return s.accounts.Get(ctx, id)
}

// FindAccountByCard returns the account owning the card.
func (s *Store) FindAccountByCard(ctx context.Context, cardDigits, cvv string) (domain.Account, error) {
	return s.accounts.FindByCard(ctx, cardDigits, cvv)
}

// QueryTransactions returns committed log entries selected by arg.
func (s *Store) QueryTransactions(ctx context.Context, arg domain.TransactionFilter) ([]domain.Transaction, error) {
	return s.transactions.Query(ctx, arg)
}

// CountTransactions returns the length of the account's log.
func (s *Store) CountTransactions(ctx context.Context, accountID string) (int64, error) {
	return s.transactions.Count(ctx, accountID)
}

type querier struct {
	accounts     *accountrepo.RepoPGS
	transactions *transactionrepo.RepoPGS
}

func (q *querier) CreateAccount(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	return q.accounts.Create(ctx, arg)
}

func (q *querier) GetAccountForUpdate(ctx context.Context, id string) (domain.Account, error) {
	return q.accounts.GetForUpdate(ctx, id)
}

func (q *querier) CompareAndUpdateBalance(ctx context.Context, id string, expected, balance decimal.Decimal) (bool, error) {
	return q.accounts.CompareAndUpdateBalance(ctx, id, expected, balance)
}

func (q *querier) UpdatePINHash(ctx context.Context, id, pinHash string) error {
	return q.accounts.UpdatePINHash(ctx, id, pinHash)
}

func (q *querier) AppendTransaction(ctx context.Context, arg domain.AppendTransactionParams) (domain.Transaction, error) {
	return q.transactions.Append(ctx, arg)
}
