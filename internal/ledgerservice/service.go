// Package ledgerservice manages balance changing operations of accounts.
//
// Every mutation runs in exactly one store transaction: the touched account
// rows are locked, the new balance is validated against the locked state and
// written with a compare-and-update, and a log entry is appended. Any error
// rolls the whole transaction back.
package ledgerservice

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-petr/pet-atm/internal/domain"
	"github.com/go-petr/pet-atm/internal/ledgerstore"
	"github.com/go-petr/pet-atm/internal/metrics"
	"github.com/go-petr/pet-atm/pkg/moneypkg"
	"github.com/go-petr/pet-atm/pkg/pinpkg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultHistoryLimit is the number of entries History returns for a non-positive limit.
const DefaultHistoryLimit = 10

// amountScale is the number of fractional digits a monetary amount may have.
const amountScale = moneypkg.Scale

// PINHasher hashes and verifies PINs.
type PINHasher interface {
	Hash(pin string) (string, error)
	Check(pin, encoded string) error
}

// Service facilitates ledger service layer logic.
type Service struct {
	store      ledgerstore.Store
	hasher     PINHasher
	minBalance decimal.Decimal
}

// New returns ledger service struct to manage balances of accounts.
func New(store ledgerstore.Store, hasher PINHasher, minBalance decimal.Decimal) *Service {
	return &Service{
		store:      store,
		hasher:     hasher,
		minBalance: minBalance,
	}
}

// ParseAmount parses a decimal amount typed by a caller.
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
	}

	return amount, nil
}

func validAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: must be positive", domain.ErrInvalidAmount)
	}

	if !moneypkg.InRange(amount) {
		return fmt.Errorf("%w: must be below %s", domain.ErrInvalidAmount, moneypkg.Limit)
	}

	if !amount.Equal(amount.Truncate(amountScale)) {
		return fmt.Errorf("%w: at most %d decimal places", domain.ErrInvalidAmount, amountScale)
	}

	return nil
}

// creditedBalance returns balance+amount or ErrInvalidAmount when the sum leaves the storable range.
func creditedBalance(balance, amount decimal.Decimal) (decimal.Decimal, error) {
	sum := balance.Add(amount)
	if !moneypkg.InRange(sum) {
		return decimal.Decimal{}, fmt.Errorf("%w: balance would exceed %s", domain.ErrInvalidAmount, moneypkg.Limit)
	}

	return sum, nil
}

// setBalance writes the balance read under the row lock. A mismatch means the
// lock did not protect the row and is reported as a conflict.
func setBalance(ctx context.Context, q ledgerstore.Querier, a domain.Account, balance decimal.Decimal) error {
	ok, err := q.CompareAndUpdateBalance(ctx, a.ID, a.Balance, balance)
	if err != nil {
		return err
	}

	if !ok {
		return domain.ErrConcurrencyConflict
	}

	return nil
}

// Deposit credits amount to the account and returns the new balance.
func (s *Service) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (balance decimal.Decimal, err error) {
	defer func() { metrics.ObserveOperation("deposit", err) }()

	l := zerolog.Ctx(ctx)

	if err := validAmount(amount); err != nil {
		l.Info().Err(err).Str("account_id", accountID).Send()
		return decimal.Decimal{}, err
	}

	err = s.store.ExecTx(ctx, func(q ledgerstore.Querier) error {
		a, err := q.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		balance, err = creditedBalance(a.Balance, amount)
		if err != nil {
			return err
		}

		if err := setBalance(ctx, q, a, balance); err != nil {
			return err
		}

		_, err = q.AppendTransaction(ctx, domain.AppendTransactionParams{
			AccountID:    accountID,
			Kind:         domain.KindCredit,
			Amount:       amount,
			Description:  domain.DescDeposit,
			BalanceAfter: balance,
		})

		return err
	})
	if err != nil {
		l.Info().Err(err).Str("account_id", accountID).Msg("deposit failed")
		return decimal.Decimal{}, err
	}

	return balance, nil
}

// Withdraw debits amount from the account and returns the new balance.
//
// The balance may not fall below the minimum balance.
func (s *Service) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (balance decimal.Decimal, err error) {
	defer func() { metrics.ObserveOperation("withdraw", err) }()

	l := zerolog.Ctx(ctx)

	if err := validAmount(amount); err != nil {
		l.Info().Err(err).Str("account_id", accountID).Send()
		return decimal.Decimal{}, err
	}

	err = s.store.ExecTx(ctx, func(q ledgerstore.Querier) error {
		a, err := q.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		balance = a.Balance.Sub(amount)
		if balance.LessThan(s.minBalance) {
			return domain.ErrInsufficientFunds
		}

		if err := setBalance(ctx, q, a, balance); err != nil {
			return err
		}

		_, err = q.AppendTransaction(ctx, domain.AppendTransactionParams{
			AccountID:    accountID,
			Kind:         domain.KindDebit,
			Amount:       amount,
			Description:  domain.DescWithdrawal,
			BalanceAfter: balance,
		})

		return err
	})
	if err != nil {
		l.Info().Err(err).Str("account_id", accountID).Msg("withdrawal failed")
		return decimal.Decimal{}, err
	}

	return balance, nil
}

// lockPair locks both accounts in ascending id order.
func lockPair(ctx context.Context, q ledgerstore.Querier, fromID, toID string) (from, to domain.Account, err error) {
	ids := []string{fromID, toID}
	sort.Strings(ids)

	locked := make(map[string]domain.Account, 2)

	for _, id := range ids {
		a, err := q.GetAccountForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) && id == toID {
				return from, to, fmt.Errorf("%w: destination %s not found", domain.ErrInvalidAccount, toID)
			}

			return from, to, err
		}

		locked[id] = a
	}

	return locked[fromID], locked[toID], nil
}

// Transfer moves amount between two distinct accounts.
func (s *Service) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (res domain.TransferResult, err error) {
	defer func() { metrics.ObserveOperation("transfer", err) }()

	l := zerolog.Ctx(ctx).With().Str("from_account_id", fromID).Str("to_account_id", toID).Logger()

	if err := validAmount(amount); err != nil {
		l.Info().Err(err).Send()
		return res, err
	}

	if fromID == toID {
		err := fmt.Errorf("%w: source and destination are the same", domain.ErrInvalidAccount)
		l.Info().Err(err).Send()
		return res, err
	}

	err = s.store.ExecTx(ctx, func(q ledgerstore.Querier) error {
		from, to, err := lockPair(ctx, q, fromID, toID)
		if err != nil {
			return err
		}

		res.FromBalance = from.Balance.Sub(amount)
		if res.FromBalance.LessThan(s.minBalance) {
			return domain.ErrInsufficientFunds
		}

		res.ToBalance, err = creditedBalance(to.Balance, amount)
		if err != nil {
			return err
		}

		if err := setBalance(ctx, q, from, res.FromBalance); err != nil {
			return err
		}

		if err := setBalance(ctx, q, to, res.ToBalance); err != nil {
			return err
		}

		res.FromEntry, err = q.AppendTransaction(ctx, domain.AppendTransactionParams{
			AccountID:    fromID,
			Kind:         domain.KindDebit,
			Amount:       amount,
			Description:  domain.TransferToDescription(toID),
			BalanceAfter: res.FromBalance,
		})
		if err != nil {
			return err
		}

		res.ToEntry, err = q.AppendTransaction(ctx, domain.AppendTransactionParams{
			AccountID:    toID,
			Kind:         domain.KindCredit,
			Amount:       amount,
			Description:  domain.TransferFromDescription(fromID),
			BalanceAfter: res.ToBalance,
		})

		return err
	})
	if err != nil {
		l.Info().Err(err).Msg("transfer failed")
		return domain.TransferResult{}, err
	}

	return res, nil
}

// ChangePIN replaces the PIN of the account after verifying the old one.
//
// The new hash is computed before the row is locked. The update is refused
// with a conflict if the stored hash changed in between.
func (s *Service) ChangePIN(ctx context.Context, accountID, oldPIN, newPIN string) (err error) {
	defer func() { metrics.ObserveOperation("change_pin", err) }()

	l := zerolog.Ctx(ctx).With().Str("account_id", accountID).Logger()

	a, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		l.Info().Err(err).Send()
		return err
	}

	if err := s.hasher.Check(oldPIN, a.PINHash); err != nil {
		l.Info().Err(err).Msg("old pin rejected")
		return domain.ErrAuthFailure
	}

	if !pinpkg.Valid(newPIN) {
		return fmt.Errorf("%w: pin must be %d digits", domain.ErrInvalidInput, pinpkg.Length)
	}

	hash, err := s.hasher.Hash(newPIN)
	if err != nil {
		l.Error().Err(err).Send()
		return err
	}

	err = s.store.ExecTx(ctx, func(q ledgerstore.Querier) error {
		locked, err := q.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		if locked.PINHash != a.PINHash {
			return domain.ErrConcurrencyConflict
		}

		return q.UpdatePINHash(ctx, accountID, hash)
	})
	if err != nil {
		l.Info().Err(err).Msg("pin change failed")
		return err
	}

	return nil
}

// Balance returns the committed balance of the account.
func (s *Service) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	a, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return a.Balance, nil
}

// History returns the most recent log entries of the account, oldest first.
func (s *Service) History(ctx context.Context, accountID string, limit int32) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	return s.Query(ctx, domain.TransactionFilter{AccountID: accountID, Limit: limit})
}

// Statement returns the log entries of the account made in the given month, in UTC.
func (s *Service) Statement(ctx context.Context, accountID string, month, year int) ([]domain.Transaction, error) {
	since, until, err := domain.MonthRange(month, year, nil)
	if err != nil {
		return nil, err
	}

	return s.Query(ctx, domain.TransactionFilter{AccountID: accountID, Since: &since, Until: &until})
}

// Query returns the log entries selected by the filter.
func (s *Service) Query(ctx context.Context, arg domain.TransactionFilter) ([]domain.Transaction, error) {
	if _, err := s.store.GetAccount(ctx, arg.AccountID); err != nil {
		return nil, err
	}

	return s.store.QueryTransactions(ctx, arg)
}
