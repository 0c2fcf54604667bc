package ledgerservice_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-petr/pet-atm/internal/domain"
	"github.com/go-petr/pet-atm/internal/ledgerservice"
	"github.com/go-petr/pet-atm/internal/ledgerstore"
	"github.com/go-petr/pet-atm/internal/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *memstore.Store, id string, balance string) {
	t.Helper()

	ctx := context.Background()
	amount := decimal.RequireFromString(balance)

	err := s.ExecTx(ctx, func(q ledgerstore.Querier) error {
		if _, err := q.CreateAccount(ctx, domain.CreateAccountParams{
			ID:      id,
			Name:    "Owner " + id,
			PINHash: "unused",
			Balance: amount,
		}); err != nil {
			return err
		}

		_, err := q.AppendTransaction(ctx, domain.AppendTransactionParams{
			AccountID:    id,
			Kind:         domain.KindCredit,
			Amount:       amount,
			Description:  domain.DescAccountCreated,
			BalanceAfter: amount,
		})

		return err
	})
	require.NoError(t, err)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// requireConsistent checks that the balance equals the balance_after of the latest entry.
func requireConsistent(t *testing.T, s *memstore.Store, id, wantBalance string) {
	t.Helper()

	ctx := context.Background()

	a, err := s.GetAccount(ctx, id)
	require.NoError(t, err)
	require.True(t, a.Balance.Equal(d(wantBalance)), "balance of %s = %s, want %s", id, a.Balance, wantBalance)

	log, err := s.QueryTransactions(ctx, domain.TransactionFilter{AccountID: id})
	require.NoError(t, err)
	require.NotEmpty(t, log)
	require.True(t, log[len(log)-1].BalanceAfter.Equal(a.Balance))

	for i := 1; i < len(log); i++ {
		require.False(t, log[i].CreatedAt.Before(log[i-1].CreatedAt))
	}
}

func TestScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(time.Second)
	s := ledgerservice.New(store, nil, domain.DefaultMinBalance)

	seed(t, store, "A", "1000")
	seed(t, store, "B", "1000")

	balance, err := s.Deposit(ctx, "A", d("500"))
	require.NoError(t, err)
	require.True(t, balance.Equal(d("1500")))

	res, err := s.Transfer(ctx, "A", "B", d("300"))
	require.NoError(t, err)
	require.True(t, res.FromBalance.Equal(d("1200")))
	require.True(t, res.ToBalance.Equal(d("1300")))

	_, err = s.Withdraw(ctx, "A", d("800"))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	requireConsistent(t, store, "A", "1200")
	requireConsistent(t, store, "B", "1300")

	history, err := s.History(ctx, "A", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, domain.DescAccountCreated, history[0].Description)
	require.Equal(t, domain.DescDeposit, history[1].Description)
	require.Equal(t, "Transfer to B", history[2].Description)
	require.Equal(t, domain.KindDebit, history[2].Kind)

	historyB, err := s.History(ctx, "B", 0)
	require.NoError(t, err)
	require.Equal(t, "Transfer from A", historyB[len(historyB)-1].Description)
}

func TestConcurrentWithdrawalsKeepMinimum(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(5 * time.Second)
	s := ledgerservice.New(store, nil, domain.DefaultMinBalance)

	seed(t, store, "1000000001", "1000")

	const workers = 2

	var (
		wg   sync.WaitGroup
		errs = make([]error, workers)
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Withdraw(ctx, "1000000001", d("400"))
		}(i)
	}

	wg.Wait()

	var ok, insufficient int

	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	require.Equal(t, 1, ok)
	require.Equal(t, 1, insufficient)
	requireConsistent(t, store, "1000000001", "600")

	n, err := store.CountTransactions(ctx, "1000000001")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}

func TestConcurrentTransfersConserveMoney(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(5 * time.Second)
	s := ledgerservice.New(store, nil, domain.DefaultMinBalance)

	ids := []string{"1000000001", "2000000002", "3000000003"}
	for _, id := range ids {
		seed(t, store, id, "5000")
	}

	var wg sync.WaitGroup

	// Opposite directions on every pair would deadlock without ordered locking.
	for round := 0; round < 20; round++ {
		for i := range ids {
			for j := range ids {
				if i == j {
					continue
				}

				wg.Add(1)

				go func(from, to string) {
					defer wg.Done()

					_, err := s.Transfer(ctx, from, to, d("10.50"))
					if err != nil {
						t.Errorf("Transfer(%s, %s) returned error: %v", from, to, err)
					}
				}(ids[i], ids[j])
			}
		}
	}

	wg.Wait()

	total := decimal.Zero

	for _, id := range ids {
		// Each account sent and received the same amounts.
		requireConsistent(t, store, id, "5000")

		a, err := store.GetAccount(ctx, id)
		require.NoError(t, err)

		total = total.Add(a.Balance)
	}

	require.True(t, total.Equal(d("15000")))
}

func TestFailuresLeaveStateUnchanged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(time.Second)
	s := ledgerservice.New(store, nil, domain.DefaultMinBalance)

	seed(t, store, "1000000001", "1000")
	seed(t, store, "2000000002", "1000")

	testCases := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{
			name: "WithdrawBelowMinimum",
			run: func() error {
				_, err := s.Withdraw(ctx, "1000000001", d("500.01"))
				return err
			},
			wantErr: domain.ErrInsufficientFunds,
		},
		{
			name: "TransferBelowMinimum",
			run: func() error {
				_, err := s.Transfer(ctx, "1000000001", "2000000002", d("501"))
				return err
			},
			wantErr: domain.ErrInsufficientFunds,
		},
		{
			name: "TransferToUnknown",
			run: func() error {
				_, err := s.Transfer(ctx, "1000000001", "9999999999", d("1"))
				return err
			},
			wantErr: domain.ErrInvalidAccount,
		},
		{
			name: "TransferToUnknownLockedFirst",
			run: func() error {
				_, err := s.Transfer(ctx, "2000000002", "0000000000", d("1"))
				return err
			},
			wantErr: domain.ErrInvalidAccount,
		},
		{
			name: "TransferFromUnknown",
			run: func() error {
				_, err := s.Transfer(ctx, "0000000000", "1000000001", d("1"))
				return err
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name: "TransferToSelf",
			run: func() error {
				_, err := s.Transfer(ctx, "1000000001", "1000000001", d("1"))
				return err
			},
			wantErr: domain.ErrInvalidAccount,
		},
		{
			name: "DepositZero",
			run: func() error {
				_, err := s.Deposit(ctx, "1000000001", decimal.Zero)
				return err
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "DepositUnknown",
			run: func() error {
				_, err := s.Deposit(ctx, "9999999999", d("1"))
				return err
			},
			wantErr: domain.ErrAccountNotFound,
		},
	}

	for _, tc := range testCases {
		require.ErrorIs(t, tc.run(), tc.wantErr, tc.name)

		for _, id := range []string{"1000000001", "2000000002"} {
			requireConsistent(t, store, id, "1000")

			n, err := store.CountTransactions(ctx, id)
			require.NoError(t, err)
			require.EqualValues(t, 1, n, tc.name)
		}
	}
}

func TestStatementFiltersByMonth(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New(time.Second)
	s := ledgerservice.New(store, nil, domain.DefaultMinBalance)

	seed(t, store, "1000000001", "1000")

	now := time.Now().UTC()

	got, err := s.Statement(ctx, "1000000001", int(now.Month()), now.Year())
	require.NoError(t, err)
	require.Len(t, got, 1)

	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)

	got, err = s.Statement(ctx, "1000000001", int(prev.Month()), prev.Year())
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = s.Statement(ctx, "9999999999", int(now.Month()), now.Year())
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}
