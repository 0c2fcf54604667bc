// Package tokenpkg creates and verifies signed tokens that carry an authenticated session.
package tokenpkg

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Different types of error returned by the VerifyToken function.
var (
	ErrInvalidToken = errors.New("token is invalid")
	ErrExpiredToken = errors.New("token has expired")
)

// Payload contains the session data of the token.
type Payload struct {
	ID        uuid.UUID `json:"id"`
	AccountID string    `json:"account_id"`
	Method    string    `json:"method"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiredAt time.Time `json:"expired_at"`
}

// NewPayload creates a new token payload for the given session.
func NewPayload(sessionID uuid.UUID, accountID, method string, duration time.Duration) *Payload {
	now := time.Now()

	return &Payload{
		ID:        sessionID,
		AccountID: accountID,
		Method:    method,
		IssuedAt:  now,
		ExpiredAt: now.Add(duration),
	}
}

// Valid checks if the token payload is valid or not.
func (p *Payload) Valid() error {
	if time.Now().After(p.ExpiredAt) {
		return ErrExpiredToken
	}

	return nil
}
