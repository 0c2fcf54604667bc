package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount indicates non-positive or non-numeric amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInsufficientFunds indicates that the operation would breach the minimum balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAccount indicates unknown or identical source and destination accounts.
	ErrInvalidAccount = errors.New("invalid account")
	// ErrConcurrencyConflict indicates that the store could not serialize the operation.
	// The whole operation may be retried by the caller.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// TransactionKind tells whether a transaction increased or decreased the balance.
type TransactionKind string

// Supported transaction kinds.
const (
	KindCredit TransactionKind = "credit"
	KindDebit  TransactionKind = "debit"
)

// Descriptions attached to log entries.
const (
	DescAccountCreated = "Account Created"
	DescDeposit        = "Deposit"
	DescWithdrawal     = "Withdrawal"
)

// TransferToDescription describes the debit side of a transfer.
func TransferToDescription(toAccountID string) string {
	return "Transfer to " + toAccountID
}

// TransferFromDescription describes the credit side of a transfer.
func TransferFromDescription(fromAccountID string) string {
	return "Transfer from " + fromAccountID
}

// Transaction is an immutable balance change record of an account.
type Transaction struct {
	ID           int64           `json:"id"`
	AccountID    string          `json:"account_id"`
	Kind         TransactionKind `json:"kind"`
	Amount       decimal.Decimal `json:"amount"` // always positive
	Description  string          `json:"description"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

// AppendTransactionParams is the input data to append a log entry.
type AppendTransactionParams struct {
	AccountID    string
	Kind         TransactionKind
	Amount       decimal.Decimal
	Description  string
	BalanceAfter decimal.Decimal
}

// TransactionFilter selects log entries of one account.
//
// Since is inclusive and Until is exclusive. A positive Limit keeps only the most recent entries.
// Results are always ordered oldest first.
type TransactionFilter struct {
	AccountID string
	Since     *time.Time
	Until     *time.Time
	Limit     int32
}

// MonthRange returns the [since, until) bounds of the given calendar month in loc.
func MonthRange(month, year int, loc *time.Location) (time.Time, time.Time, error) {
	if month < 1 || month > 12 || year < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: month %d of year %d", ErrInvalidInput, month, year)
	}

	if loc == nil {
		loc = time.UTC
	}

	since := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)

	return since, since.AddDate(0, 1, 0), nil
}

// TransferResult is the outcome of a transfer between two accounts.
type TransferResult struct {
	FromBalance decimal.Decimal `json:"from_balance"`
	ToBalance   decimal.Decimal `json:"to_balance"`
	FromEntry   Transaction     `json:"from_entry"`
	ToEntry     Transaction     `json:"to_entry"`
}
