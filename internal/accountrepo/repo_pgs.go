// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-petr/pet-atm/internal/domain"
	"github.com/go-petr/pet-atm/pkg/dbpkg"
	"github.com/go-petr/pet-atm/pkg/errorspkg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const accountColumns = `id, name, pin_hash, balance, card_number, card_expiry, card_cvv, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (domain.Account, error) {
	var (
		a                   domain.Account
		number, expiry, cvv sql.NullString
	)

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.PINHash,
		&a.Balance,
		&number,
		&expiry,
		&cvv,
		&a.CreatedAt,
	)
	if err != nil {
		return a, err
	}

	if number.Valid {
		a.Card = &domain.Card{Number: number.String, Expiry: expiry.String, CVV: cvv.String}
	}

	return a, nil
}

// mapError converts driver errors to domain errors.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrAccountNotFound
	}

	if dbpkg.IsConcurrencyConflict(err) {
		return domain.ErrConcurrencyConflict
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if _, kind := dbpkg.Constraint(err); kind == "unique" {
		return domain.ErrAccountExists
	}

	return errorspkg.ErrInternal
}

const createQuery = `
INSERT INTO
    accounts (id, name, pin_hash, balance, card_number, card_expiry, card_cvv)
VALUES
    ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + accountColumns

// Create stores the account and then returns it.
//
// It returns domain.ErrAccountExists if either the id or the card number is taken.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	var number, expiry, cvv sql.NullString
	if arg.Card != nil {
		number = sql.NullString{String: arg.Card.Number, Valid: true}
		expiry = sql.NullString{String: arg.Card.Expiry, Valid: true}
		cvv = sql.NullString{String: arg.Card.CVV, Valid: true}
	}

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.ID, arg.Name, arg.PINHash, arg.Balance.String(), number, expiry, cvv)

	a, err := scanAccount(row)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Account{}, mapError(err)
	}

	return a, nil
}

const getQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1
`

// Get returns the account with the given id.
func (r *RepoPGS) Get(ctx context.Context, id string) (domain.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			zerolog.Ctx(ctx).Error().Err(err).Send()
		}

		return domain.Account{}, mapError(err)
	}

	return a, nil
}

const getForUpdateQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1
FOR UPDATE
`

// GetForUpdate returns the account with the given id and locks its row
// until the surrounding transaction ends.
func (r *RepoPGS) GetForUpdate(ctx context.Context, id string) (domain.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, getForUpdateQuery, id))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			zerolog.Ctx(ctx).Error().Err(err).Send()
		}

		return domain.Account{}, mapError(err)
	}

	return a, nil
}

const findByCardQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE regexp_replace(card_number, '\D', '', 'g') = $1
  AND card_cvv = $2
`

// FindByCard returns the account owning the card. cardDigits holds the card number without separators.
func (r *RepoPGS) FindByCard(ctx context.Context, cardDigits, cvv string) (domain.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, findByCardQuery, cardDigits, cvv))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			zerolog.Ctx(ctx).Error().Err(err).Send()
		}

		return domain.Account{}, mapError(err)
	}

	return a, nil
}

const compareAndUpdateBalanceQuery = `
UPDATE accounts
SET balance = $3
WHERE id = $1 AND balance = $2
`

// CompareAndUpdateBalance sets the balance to the given value
// only if the stored balance still equals expected.
func (r *RepoPGS) CompareAndUpdateBalance(ctx context.Context, id string, expected, balance decimal.Decimal) (bool, error) {
	l := zerolog.Ctx(ctx)

	res, err := r.db.ExecContext(ctx, compareAndUpdateBalanceQuery, id, expected.String(), balance.String())
	if err != nil {
		l.Error().Err(err).Send()
		return false, mapError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		l.Error().Err(err).Send()
		return false, errorspkg.ErrInternal
	}

	return n == 1, nil
}

const updatePINHashQuery = `
UPDATE accounts
SET pin_hash = $2
WHERE id = $1
`

// UpdatePINHash replaces the stored PIN hash.
func (r *RepoPGS) UpdatePINHash(ctx context.Context, id, pinHash string) error {
	l := zerolog.Ctx(ctx)

	res, err := r.db.ExecContext(ctx, updatePINHashQuery, id, pinHash)
	if err != nil {
		l.Error().Err(err).Send()
		return mapError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	if n == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}
