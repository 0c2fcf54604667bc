// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-petr/pet-atm/internal/domain"
	"github.com/go-petr/pet-atm/internal/ledgerstore"
	"github.com/go-petr/pet-atm/internal/metrics"
	"github.com/go-petr/pet-atm/pkg/cardpkg"
	"github.com/go-petr/pet-atm/pkg/moneypkg"
	"github.com/go-petr/pet-atm/pkg/pinpkg"
	"github.com/go-petr/pet-atm/pkg/randompkg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	minNameLength  = 2
	maxCreateTries = 3
)

// PINHasher hashes PINs.
type PINHasher interface {
	Hash(pin string) (string, error)
}

// CreateParams is the input data to open an account.
type CreateParams struct {
	Name           string
	PIN            string
	OpeningBalance decimal.Decimal
	WithCard       bool
}

// Service facilitates account service layer logic.
type Service struct {
	store      ledgerstore.Store
	hasher     PINHasher
	minBalance decimal.Decimal
}

// New returns account service struct to manage account bussines logic.
func New(store ledgerstore.Store, hasher PINHasher, minBalance decimal.Decimal) *Service {
	return &Service{
		store:      store,
		hasher:     hasher,
		minBalance: minBalance,
	}
}

func (s *Service) validate(arg CreateParams) error {
	name := strings.TrimSpace(arg.Name)
	if utf8.RuneCountInString(name) < minNameLength {
		return fmt.Errorf("%w: name must have at least %d characters", domain.ErrInvalidInput, minNameLength)
	}

	if !pinpkg.Valid(arg.PIN) {
		return fmt.Errorf("%w: pin must be %d digits", domain.ErrInvalidInput, pinpkg.Length)
	}

	if !moneypkg.Valid(arg.OpeningBalance) {
		return fmt.Errorf("%w: opening balance must be positive and below %s with at most %d decimal places",
			domain.ErrInvalidInput, moneypkg.Limit, moneypkg.Scale)
	}

	if arg.OpeningBalance.LessThan(s.minBalance) {
		return fmt.Errorf("%w: opening balance must be at least %s", domain.ErrInvalidInput, s.minBalance)
	}

	return nil
}

// Create opens an account and logs its opening balance.
//
// The account id and the card artifact are generated. A collision with an
// existing account is retried with fresh values.
func (s *Service) Create(ctx context.Context, arg CreateParams) (a domain.Account, err error) {
	defer func() { metrics.ObserveOperation("create_account", err) }()

	l := zerolog.Ctx(ctx)

	if err := s.validate(arg); err != nil {
		l.Info().Err(err).Send()
		return domain.Account{}, err
	}

	hash, err := s.hasher.Hash(arg.PIN)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Account{}, err
	}

	for try := 1; try <= maxCreateTries; try++ {
		params := domain.CreateAccountParams{
			ID:      randompkg.AccountID(),
			Name:    strings.TrimSpace(arg.Name),
			PINHash: hash,
			Balance: arg.OpeningBalance,
		}

		if arg.WithCard {
			params.Card = &domain.Card{
				Number: cardpkg.Number(),
				Expiry: cardpkg.Expiry(time.Now()),
				CVV:    cardpkg.CVV(),
			}
		}

		a, err = s.create(ctx, params)
		if !errors.Is(err, domain.ErrAccountExists) {
			break
		}

		l.Warn().Int("try", try).Msg("generated account collides with an existing one")
	}

	if err != nil {
		l.Info().Err(err).Msg("account creation failed")
		return domain.Account{}, err
	}

	return a, nil
}

func (s *Service) create(ctx context.Context, params domain.CreateAccountParams) (domain.Account, error) {
	var a domain.Account

	err := s.store.ExecTx(ctx, func(q ledgerstore.Querier) error {
		var err error

		a, err = q.CreateAccount(ctx, params)
		if err != nil {
			return err
		}

		_, err = q.AppendTransaction(ctx, domain.AppendTransactionParams{
			AccountID:    a.ID,
			Kind:         domain.KindCredit,
			Amount:       params.Balance,
			Description:  domain.DescAccountCreated,
			BalanceAfter: params.Balance,
		})

		return err
	})

	return a, err
}

// Get returns the account with the given id.
func (s *Service) Get(ctx context.Context, id string) (domain.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// FindByCard returns the account owning the card. Separators in number are ignored.
func (s *Service) FindByCard(ctx context.Context, number, cvv string) (domain.Account, error) {
	return s.store.FindAccountByCard(ctx, cardpkg.Sanitize(number), cvv)
}
