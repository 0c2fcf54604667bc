// Package domain provides definitions of all entities.
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists indicates that the generated account id or card number is already taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidInput indicates malformed account creation or credential parameters.
	ErrInvalidInput = errors.New("invalid input")
)

// DefaultMinBalance is the balance no account may fall below.
var DefaultMinBalance = decimal.NewFromInt(500)

// Card holds the payment card artifact used for the card login path.
type Card struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	CVV    string `json:"cvv"`
}

// Account holds the balance and credentials of a single ledger account.
type Account struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	PINHash   string          `json:"-"`
	Balance   decimal.Decimal `json:"balance"`
	Card      *Card           `json:"card,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateAccountParams is the input data to store a new account.
type CreateAccountParams struct {
	ID      string
	Name    string
	PINHash string
	Balance decimal.Decimal
	Card    *Card
}
