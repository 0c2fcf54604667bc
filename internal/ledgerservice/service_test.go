package ledgerservice

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-petr/pet-atm/internal/domain"
	"github.com/go-petr/pet-atm/internal/ledgerstore"
	"github.com/go-petr/pet-atm/pkg/errorspkg"
	"github.com/go-petr/pet-atm/pkg/pinpkg"
	"github.com/go-petr/pet-atm/pkg/randompkg"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type decimalMatcher struct{ want decimal.Decimal }

func (m decimalMatcher) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalMatcher) String() string { return "is decimal " + m.want.String() }

func eqDecimal(s string) gomock.Matcher {
	return decimalMatcher{want: decimal.RequireFromString(s)}
}

// appendMatcher matches AppendTransactionParams comparing money by value.
type appendMatcher struct{ want domain.AppendTransactionParams }

func (m appendMatcher) Matches(x any) bool {
	got, ok := x.(domain.AppendTransactionParams)

	return ok &&
		got.AccountID == m.want.AccountID &&
		got.Kind == m.want.Kind &&
		got.Description == m.want.Description &&
		got.Amount.Equal(m.want.Amount) &&
		got.BalanceAfter.Equal(m.want.BalanceAfter)
}

func (m appendMatcher) String() string { return fmt.Sprintf("is %+v", m.want) }

func eqAppend(id string, kind domain.TransactionKind, amount, after, desc string) gomock.Matcher {
	return appendMatcher{want: domain.AppendTransactionParams{
		AccountID:    id,
		Kind:         kind,
		Amount:       decimal.RequireFromString(amount),
		Description:  desc,
		BalanceAfter: decimal.RequireFromString(after),
	}}
}

func account(id, balance string) domain.Account {
	return domain.Account{ID: id, Name: randompkg.Name(), Balance: decimal.RequireFromString(balance)}
}

func runTx(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
	store.EXPECT().ExecTx(gomock.Any(), gomock.Any()).
		Times(1).
		DoAndReturn(func(_ context.Context, fn func(ledgerstore.Querier) error) error {
			return fn(q)
		})
}

func TestParseAmount(t *testing.T) {
	t.Parallel()

	got, err := ParseAmount("12.50")
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.RequireFromString("12.5")))

	_, err = ParseAmount("12,50")
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = ParseAmount("")
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestDeposit(t *testing.T) {
	t.Parallel()

	const id = "1234567890"

	testCases := []struct {
		name        string
		amount      string
		buildStubs  func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier)
		wantBalance string
		wantErr     error
	}{
		{
			name:   "OK",
			amount: "250.25",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				runTx(store, q)
				gomock.InOrder(
					q.EXPECT().GetAccountForUpdate(gomock.Any(), id).Return(account(id, "1000"), nil),
					q.EXPECT().CompareAndUpdateBalance(gomock.Any(), id, eqDecimal("1000"), eqDecimal("1250.25")).Return(true, nil),
					q.EXPECT().AppendTransaction(gomock.Any(), eqAppend(id, domain.KindCredit, "250.25", "1250.25", domain.DescDeposit)).
						Return(domain.Transaction{ID: 1}, nil),
				)
			},
			wantBalance: "1250.25",
		},
		{
			name:   "ZeroAmount",
			amount: "0",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				store.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:   "NegativeAmount",
			amount: "-5",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				store.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:   "TooManyDecimals",
			amount: "1.001",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				store.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:   "AmountTooLarge",
			amount: "1e20",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				store.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:   "HugeExponent",
			amount: "1e2000000000",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				store.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:   "BalanceOverLimit",
			amount: "0.01",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				runTx(store, q)
				q.EXPECT().GetAccountForUpdate(gomock.Any(), id).Return(account(id, "9999999999999999.99"), nil)
				q.EXPECT().CompareAndUpdateBalance(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				q.EXPECT().AppendTransaction(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:   "AccountNotFound",
			amount: "10",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				runTx(store, q)
				q.EXPECT().GetAccountForUpdate(gomock.Any(), id).Return(domain.Account{}, domain.ErrAccountNotFound)
				q.EXPECT().CompareAndUpdateBalance(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				q.EXPECT().AppendTransaction(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name:   "CompareMiss",
			amount: "10",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				runTx(store, q)
				q.EXPECT().GetAccountForUpdate(gomock.Any(), id).Return(account(id, "1000"), nil)
				q.EXPECT().CompareAndUpdateBalance(gomock.Any(), id, gomock.Any(), gomock.Any()).Return(false, nil)
				q.EXPECT().AppendTransaction(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrConcurrencyConflict,
		},
		{
			name:   "AppendFailure",
			amount: "10",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				runTx(store, q)
				q.EXPECT().GetAccountForUpdate(gomock.Any(), id).Return(account(id, "1000"), nil)
				q.EXPECT().CompareAndUpdateBalance(gomock.Any(), id, gomock.Any(), gomock.Any()).Return(true, nil)
				q.EXPECT().AppendTransaction(gomock.Any(), gomock.Any()).Return(domain.Transaction{}, errorspkg.ErrInternal)
			},
			wantErr: errorspkg.ErrInternal,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			store := ledgerstore.NewMockStore(ctrl)
			q := ledgerstore.NewMockQuerier(ctrl)
			tc.buildStubs(store, q)

			s := New(store, nil, domain.DefaultMinBalance)

			got, err := s.Deposit(context.Background(), id, decimal.RequireFromString(tc.amount))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.True(t, got.Equal(decimal.RequireFromString(tc.wantBalance)), "got balance %s", got)
		})
	}
}

func TestWithdraw(t *testing.T) {
	t.Parallel()

	const id = "1234567890"

	testCases := []struct {
		name        string
		amount      string
		buildStubs  func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier)
		wantBalance string
		wantErr     error
	}{
		{
			name:   "OK",
			amount: "400",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				runTx(store, q)
				gomock.InOrder(
					q.EXPECT().GetAccountForUpdate(gomock.Any(), id).Return(account(id, "1000"), nil),
					q.EXPECT().CompareAndUpdateBalance(gomock.Any(), id, eqDecimal("1000"), eqDecimal("600")).Return(true, nil),
					q.EXPECT().AppendTransaction(gomock.Any(), eqAppend(id, domain.KindDebit, "400", "600", domain.DescWithdrawal)).
						Return(domain.Transaction{ID: 1}, nil),
				)
			},
			wantBalance: "600",
		},
		{
			name:   "DownToMinimum",
			amount: "500",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				runTx(store, q)
				q.EXPECT().GetAccountForUpdate(gomock.Any(), id).Return(account(id, "1000"), nil)
				q.EXPECT().CompareAndUpdateBalance(gomock.Any(), id, eqDecimal("1000"), eqDecimal("500")).Return(true, nil)
				q.EXPECT().AppendTransaction(gomock.Any(), gomock.Any()).Return(domain.Transaction{ID: 1}, nil)
			},
			wantBalance: "500",
		},
		{
			name:   "BelowMinimum",
			amount: "500.01",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				runTx(store, q)
				q.EXPECT().GetAccountForUpdate(gomock.Any(), id).Return(account(id, "1000"), nil)
				q.EXPECT().CompareAndUpdateBalance(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
				q.EXPECT().AppendTransaction(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInsufficientFunds,
		},
		{
			name:   "InvalidAmount",
			amount: "0",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				store.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:   "HugeExponent",
			amount: "1e2000000000",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				store.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:   "LockConflict",
			amount: "10",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				runTx(store, q)
				q.EXPECT().GetAccountForUpdate(gomock.Any(), id).Return(domain.Account{}, domain.ErrConcurrencyConflict)
			},
			wantErr: domain.ErrConcurrencyConflict,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			store := ledgerstore.NewMockStore(ctrl)
			q := ledgerstore.NewMockQuerier(ctrl)
			tc.buildStubs(store, q)

			s := New(store, nil, domain.DefaultMinBalance)

			got, err := s.Withdraw(context.Background(), id, decimal.RequireFromString(tc.amount))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.True(t, got.Equal(decimal.RequireFromString(tc.wantBalance)), "got balance %s", got)
		})
	}
}

func TestTransfer(t *testing.T) {
	t.Parallel()

	const (
		lowID  = "1000000001"
		highID = "2000000002"
	)

	testCases := []struct {
		name       string
		from, to   string
		amount     string
		buildStubs func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier)
		wantErr    error
	}{
		{
			name:   "OKLocksInIDOrder",
			from:   highID,
			to:     lowID,
			amount: "300",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				runTx(store, q)
				gomock.InOrder(
					q.EXPECT().GetAccountForUpdate(gomock.Any(), lowID).Return(account(lowID, "700"), nil),
					q.EXPECT().GetAccountForUpdate(gomock.Any(), highID).Return(account(highID, "1000"), nil),
					q.EXPECT().CompareAndUpdateBalance(gomock.Any(), highID, eqDecimal("1000"), eqDecimal("700")).Return(true, nil),
					q.EXPECT().CompareAndUpdateBalance(gomock.Any(), lowID, eqDecimal("700"), eqDecimal("1000")).Return(true, nil),
					q.EXPECT().AppendTransaction(gomock.Any(),
						eqAppend(highID, domain.KindDebit, "300", "700", domain.TransferToDescription(lowID))).
						Return(domain.Transaction{ID: 1, AccountID: highID}, nil),
					q.EXPECT().AppendTransaction(gomock.Any(),
						eqAppend(lowID, domain.KindCredit, "300", "1000", domain.TransferFromDescription(highID))).
						Return(domain.Transaction{ID: 2, AccountID: lowID}, nil),
				)
			},
		},
		{
			name:   "SameAccount",
			from:   lowID,
			to:     lowID,
			amount: "1",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				store.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidAccount,
		},
		{
			name:   "InvalidAmountBeforeSameAccount",
			from:   lowID,
			to:     lowID,
			amount: "-1",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				store.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:   "AmountTooLarge",
			from:   lowID,
			to:     highID,
			amount: "1e20",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				store.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:   "HugeExponent",
			from:   lowID,
			to:     highID,
			amount: "1e2000000000",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				store.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:   "DestinationOverLimit",
			from:   lowID,
			to:     highID,
			amount: "100",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				runTx(store, q)
				q.EXPECT().GetAccountForUpdate(gomock.Any(), lowID).Return(account(lowID, "1000"), nil)
				q.EXPECT().GetAccountForUpdate(gomock.Any(), highID).Return(account(highID, "9999999999999950"), nil)
				q.EXPECT().CompareAndUpdateBalance(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:   "MissingDestination",
			from:   highID,
			to:     lowID,
			amount: "1",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				runTx(store, q)
				q.EXPECT().GetAccountForUpdate(gomock.Any(), lowID).Return(domain.Account{}, domain.ErrAccountNotFound)
				q.EXPECT().GetAccountForUpdate(gomock.Any(), highID).Times(0)
			},
			wantErr: domain.ErrInvalidAccount,
		},
		{
			name:   "MissingSource",
			from:   lowID,
			to:     highID,
			amount: "1",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				runTx(store, q)
				q.EXPECT().GetAccountForUpdate(gomock.Any(), lowID).Return(domain.Account{}, domain.ErrAccountNotFound)
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name:   "InsufficientFunds",
			from:   lowID,
			to:     highID,
			amount: "500.01",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				runTx(store, q)
				q.EXPECT().GetAccountForUpdate(gomock.Any(), lowID).Return(account(lowID, "1000"), nil)
				q.EXPECT().GetAccountForUpdate(gomock.Any(), highID).Return(account(highID, "1000"), nil)
				q.EXPECT().CompareAndUpdateBalance(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInsufficientFunds,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			store := ledgerstore.NewMockStore(ctrl)
			q := ledgerstore.NewMockQuerier(ctrl)
			tc.buildStubs(store, q)

			s := New(store, nil, domain.DefaultMinBalance)

			got, err := s.Transfer(context.Background(), tc.from, tc.to, decimal.RequireFromString(tc.amount))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.Empty(t, got)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.from, got.FromEntry.AccountID)
			require.Equal(t, tc.to, got.ToEntry.AccountID)
		})
	}
}

func TestChangePIN(t *testing.T) {
	t.Parallel()

	hasher, err := pinpkg.NewHasher(pinpkg.MinIterations)
	require.NoError(t, err)

	const id = "1234567890"

	oldHash, err := hasher.Hash("1234")
	require.NoError(t, err)

	stored := domain.Account{ID: id, PINHash: oldHash, Balance: decimal.NewFromInt(1000)}

	testCases := []struct {
		name       string
		oldPIN     string
		newPIN     string
		buildStubs func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier)
		wantErr    error
	}{
		{
			name:   "OK",
			oldPIN: "1234",
			newPIN: "9876",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				store.EXPECT().GetAccount(gomock.Any(), id).Return(stored, nil)
				runTx(store, q)
				q.EXPECT().GetAccountForUpdate(gomock.Any(), id).Return(stored, nil)
				q.EXPECT().UpdatePINHash(gomock.Any(), id, gomock.Any()).
					DoAndReturn(func(_ context.Context, _, hash string) error {
						require.NoError(t, hasher.Check("9876", hash))
						return nil
					})
			},
		},
		{
			name:   "WrongOldPIN",
			oldPIN: "0000",
			newPIN: "9876",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				store.EXPECT().GetAccount(gomock.Any(), id).Return(stored, nil)
				store.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrAuthFailure,
		},
		{
			name:   "MalformedNewPIN",
			oldPIN: "1234",
			newPIN: "98a6",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				store.EXPECT().GetAccount(gomock.Any(), id).Return(stored, nil)
				store.EXPECT().ExecTx(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:   "AccountNotFound",
			oldPIN: "1234",
			newPIN: "9876",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				store.EXPECT().GetAccount(gomock.Any(), id).Return(domain.Account{}, domain.ErrAccountNotFound)
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name:   "ChangedConcurrently",
			oldPIN: "1234",
			newPIN: "9876",
			buildStubs: func(store *ledgerstore.MockStore, q *ledgerstore.MockQuerier) {
				store.EXPECT().GetAccount(gomock.Any(), id).Return(stored, nil)
				runTx(store, q)
				changed := stored
				changed.PINHash = "other"
				q.EXPECT().GetAccountForUpdate(gomock.Any(), id).Return(changed, nil)
				q.EXPECT().UpdatePINHash(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrConcurrencyConflict,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			store := ledgerstore.NewMockStore(ctrl)
			q := ledgerstore.NewMockQuerier(ctrl)
			tc.buildStubs(store, q)

			s := New(store, hasher, domain.DefaultMinBalance)

			err := s.ChangePIN(context.Background(), id, tc.oldPIN, tc.newPIN)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestHistoryDefaultsLimit(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := ledgerstore.NewMockStore(ctrl)

	const id = "1234567890"

	store.EXPECT().GetAccount(gomock.Any(), id).Return(account(id, "1000"), nil)
	store.EXPECT().QueryTransactions(gomock.Any(), domain.TransactionFilter{AccountID: id, Limit: DefaultHistoryLimit}).
		Return([]domain.Transaction{}, nil)

	s := New(store, nil, domain.DefaultMinBalance)

	got, err := s.History(context.Background(), id, 0)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestStatementRejectsBadMonth(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := ledgerstore.NewMockStore(ctrl)
	store.EXPECT().QueryTransactions(gomock.Any(), gomock.Any()).Times(0)

	s := New(store, nil, domain.DefaultMinBalance)

	_, err := s.Statement(context.Background(), "1234567890", 13, 2024)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
