// Package ledgerstore declares the transactional storage contracts of the ledger.
//
// Account Store and Transaction Log primitives are reached through a Querier that only exists
// inside Store.ExecTx, so every balance change and its log entry commit or roll back together.
package ledgerstore

import (
	"context"

	"github.com/go-petr/pet-atm/internal/domain"
	"github.com/shopspring/decimal"
)

// Querier provides the primitives available inside a store transaction.
//
//go:generate mockgen -source ledgerstore.go -destination ledgerstore_mock.go -package ledgerstore
type Querier interface {
	// CreateAccount stores a new account. It returns domain.ErrAccountExists on id or card collision.
	CreateAccount(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	// GetAccountForUpdate reads the account and holds its exclusive lock until the transaction ends.
	GetAccountForUpdate(ctx context.Context, id string) (domain.Account, error)
	// CompareAndUpdateBalance sets the balance only if it still equals expected.
	CompareAndUpdateBalance(ctx context.Context, id string, expected, balance decimal.Decimal) (bool, error)
	// UpdatePINHash replaces the stored credential hash.
	UpdatePINHash(ctx context.Context, id, pinHash string) error
	// AppendTransaction appends a log entry to the account.
	AppendTransaction(ctx context.Context, arg domain.AppendTransactionParams) (domain.Transaction, error)
}

// Store runs Querier callbacks atomically and serves lock free reads of committed state.
type Store interface {
	// ExecTx runs fn in a single store transaction. It commits when fn returns nil and rolls back otherwise.
	ExecTx(ctx context.Context, fn func(q Querier) error) error

	GetAccount(ctx context.Context, id string) (domain.Account, error)
	FindAccountByCard(ctx context.Context, cardDigits, cvv string) (domain.Account, error)
	QueryTransactions(ctx context.Context, arg domain.TransactionFilter) ([]domain.Transaction, error)
	CountTransactions(ctx context.Context, accountID string) (int64, error)
}
