// Package test provides shared test helpers.
package test

import (
	"context"
	"testing"

	"github.com/go-petr/pet-atm/internal/accountrepo"
	"github.com/go-petr/pet-atm/internal/domain"
	"github.com/go-petr/pet-atm/internal/transactionrepo"
	"github.com/go-petr/pet-atm/pkg/dbpkg"
	"github.com/shopspring/decimal"
)

// SeedAccount creates a random account with the given balance inside a test transaction.
func SeedAccount(t *testing.T, tx dbpkg.SQLInterface, balance string) domain.Account {
	t.Helper()

	random := RandomAccount()

	arg := domain.CreateAccountParams{
		ID:      random.ID,
		Name:    random.Name,
		PINHash: "unused",
		Balance: decimal.RequireFromString(balance),
		Card:    random.Card,
	}

	account, err := accountrepo.NewRepoPGS(tx).Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("accountRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	return account
}

// SeedTransaction appends a credit entry to the account's log inside a test transaction.
func SeedTransaction(t *testing.T, tx dbpkg.SQLInterface, accountID, amount, balanceAfter string) domain.Transaction {
	t.Helper()

	arg := domain.AppendTransactionParams{
		AccountID:    accountID,
		Kind:         domain.KindCredit,
		Amount:       decimal.RequireFromString(amount),
		Description:  domain.DescDeposit,
		BalanceAfter: decimal.RequireFromString(balanceAfter),
	}

	entry, err := transactionrepo.NewRepoPGS(tx).Append(context.Background(), arg)
	if err != nil {
		t.Fatalf("transactionRepo.Append(context.Background(), %+v) returned error: %v", arg, err)
	}

	return entry
}

// SeedTransactions appends count deposits of 1 to the account's log inside a test transaction.
func SeedTransactions(t *testing.T, tx dbpkg.SQLInterface, account domain.Account, count int) []domain.Transaction {
	t.Helper()

	entries := make([]domain.Transaction, count)
	balance := account.Balance

	for i := range entries {
		balance = balance.Add(decimal.NewFromInt(1))
		entries[i] = SeedTransaction(t, tx, account.ID, "1", balance.String())
	}

	return entries
}
