package test

import (
	"time"

	"github.com/go-petr/pet-atm/internal/domain"
	"github.com/go-petr/pet-atm/pkg/cardpkg"
	"github.com/go-petr/pet-atm/pkg/randompkg"
)

// RandomAccount returns random account with a card and a balance well above the minimum.
func RandomAccount() domain.Account {
	now := time.Now().Truncate(time.Second).UTC()

	return domain.Account{
		ID:      randompkg.AccountID(),
		Name:    randompkg.Name(),
		Balance: randompkg.MoneyAmountBetween(1000, 10_000),
		Card: &domain.Card{
			Number: cardpkg.Number(),
			Expiry: cardpkg.Expiry(now),
			CVV:    cardpkg.CVV(),
		},
		CreatedAt: now,
	}
}
