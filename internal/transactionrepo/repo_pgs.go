// Package transactionrepo manages repository layer of the transaction log.
package transactionrepo

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/go-petr/pet-atm/internal/domain"
	"github.com/go-petr/pet-atm/pkg/dbpkg"
	"github.com/go-petr/pet-atm/pkg/errorspkg"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates transaction log repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns transaction RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

func mapError(err error) error {
	if dbpkg.IsConcurrencyConflict(err) {
		return domain.ErrConcurrencyConflict
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	switch name, kind := dbpkg.Constraint(err); {
	case kind == "foreign_key":
		return domain.ErrAccountNotFound
	case name == "transactions_amount_check":
		return domain.ErrInvalidAmount
	}

	return errorspkg.ErrInternal
}

// created_at uses clock_timestamp so that entries appended later in the same
// database transaction never get an earlier timestamp.
const appendQuery = `
INSERT INTO
    transactions (account_id, kind, amount, description, balance_after, created_at)
VALUES
    ($1, $2, $3, $4, $5, clock_timestamp())
RETURNING id, account_id, kind, amount, description, balance_after, created_at
`

// Append appends the entry to the account's log and returns it.
func (r *RepoPGS) Append(ctx context.Context, arg domain.AppendTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, appendQuery,
		arg.AccountID,
		string(arg.Kind),
		arg.Amount.String(),
		arg.Description,
		arg.BalanceAfter.String(),
	)

	var t domain.Transaction

	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.Kind,
		&t.Amount,
		&t.Description,
		&t.BalanceAfter,
		&t.CreatedAt,
	)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Transaction{}, mapError(err)
	}

	return t, nil
}

// buildQuery renders the select for the filter. A positive limit selects the
// newest rows first and reorders them oldest first in the outer query.
func buildQuery(arg domain.TransactionFilter) (string, []any) {
	var (
		b    strings.Builder
		args = []any{arg.AccountID}
	)

	b.WriteString(`
SELECT id, account_id, kind, amount, description, balance_after, created_at
FROM transactions
WHERE account_id = $1`)

	if arg.Since != nil {
		args = append(args, *arg.Since)
		b.WriteString(" AND created_at >= $" + strconv.Itoa(len(args)))
	}

	if arg.Until != nil {
		args = append(args, *arg.Until)
		b.WriteString(" AND created_at < $" + strconv.Itoa(len(args)))
	}

	if arg.Limit <= 0 {
		b.WriteString("\nORDER BY created_at, id")
		return b.String(), args
	}

	args = append(args, arg.Limit)
	b.WriteString("\nORDER BY created_at DESC, id DESC\nLIMIT $" + strconv.Itoa(len(args)))

	return `
SELECT * FROM (` + b.String() + `
) AS latest
ORDER BY created_at, id`, args
}

// Query returns the entries of the account selected by the filter, oldest first.
func (r *RepoPGS) Query(ctx context.Context, arg domain.TransactionFilter) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	query, args := buildQuery(arg)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, mapError(err)
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.ID,
			&t.AccountID,
			&t.Kind,
			&t.Amount,
			&t.Description,
			&t.BalanceAfter,
			&t.CreatedAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, t)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

const countQuery = `
SELECT count(*)
FROM transactions
WHERE account_id = $1
`

// Count returns the number of entries in the account's log.
func (r *RepoPGS) Count(ctx context.Context, accountID string) (int64, error) {
	var n int64

	err := r.db.QueryRowContext(ctx, countQuery, accountID).Scan(&n)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		return 0, mapError(err)
	}

	return n, nil
}
