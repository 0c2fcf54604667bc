package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrAuthFailure indicates a credential mismatch or a lockout.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrWrongPIN indicates a PIN mismatch with attempts left.
	ErrWrongPIN = fmt.Errorf("%w: wrong pin", ErrAuthFailure)
	// ErrLockedOut indicates that the login sequence ran out of PIN attempts.
	ErrLockedOut = fmt.Errorf("%w: too many wrong pin attempts", ErrAuthFailure)
)

// LoginMethod names the credentials used to open a session.
type LoginMethod string

// Supported login methods.
const (
	MethodAccount LoginMethod = "account"
	MethodCard    LoginMethod = "card"
)

// Session binds an authenticated caller to one account.
//
// Sessions live in memory only and are passed explicitly to every call made on behalf of the caller.
type Session struct {
	ID        uuid.UUID   `json:"id"`
	AccountID string      `json:"account_id"`
	Method    LoginMethod `json:"method"`
	CreatedAt time.Time   `json:"created_at"`
}
