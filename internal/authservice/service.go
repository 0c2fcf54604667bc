// Package authservice authenticates ATM users and opens sessions.
//
// A login starts from credentials identifying an account, an account id or a
// card with its CVV, and then accepts PIN attempts until one matches or the
// attempts run out.
package authservice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-petr/pet-atm/internal/domain"
	"github.com/go-petr/pet-atm/internal/metrics"
	"github.com/go-petr/pet-atm/pkg/cardpkg"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMaxAttempts is the number of PIN attempts of a login sequence.
const DefaultMaxAttempts = 3

// ErrNoMorePINs is returned by a PINSource that has nothing left to offer.
var ErrNoMorePINs = errors.New("no more pins")

// Repo provides data access layer interface needed by auth service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package authservice
type Repo interface {
	GetAccount(ctx context.Context, id string) (domain.Account, error)
	FindAccountByCard(ctx context.Context, cardDigits, cvv string) (domain.Account, error)
}

// PINChecker verifies a PIN against its stored hash.
type PINChecker interface {
	Check(pin, encoded string) error
}

// Credentials identify the account a login sequence is for.
type Credentials interface {
	method() domain.LoginMethod
	lookup(ctx context.Context, repo Repo) (domain.Account, error)
}

// AccountCredentials identify an account by its id.
type AccountCredentials struct {
	AccountID string
}

func (AccountCredentials) method() domain.LoginMethod { return domain.MethodAccount }

func (c AccountCredentials) lookup(ctx context.Context, repo Repo) (domain.Account, error) {
	return repo.GetAccount(ctx, c.AccountID)
}

// CardCredentials identify an account by its card number and CVV.
// Separators in the card number are ignored.
type CardCredentials struct {
	CardNumber string
	CVV        string
}

func (CardCredentials) method() domain.LoginMethod { return domain.MethodCard }

func (c CardCredentials) lookup(ctx context.Context, repo Repo) (domain.Account, error) {
	return repo.FindAccountByCard(ctx, cardpkg.Sanitize(c.CardNumber), c.CVV)
}

// Service facilitates authentication logic.
type Service struct {
	repo        Repo
	checker     PINChecker
	maxAttempts int
}

// New returns auth service. A non-positive maxAttempts means DefaultMaxAttempts.
func New(repo Repo, checker PINChecker, maxAttempts int) *Service {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Service{
		repo:        repo,
		checker:     checker,
		maxAttempts: maxAttempts,
	}
}

// Start looks up the account identified by creds and begins a login sequence for it.
func (s *Service) Start(ctx context.Context, creds Credentials) (*Sequence, error) {
	l := zerolog.Ctx(ctx)

	if creds == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthFailure, domain.ErrInvalidInput)
	}

	a, err := creds.lookup(ctx, s.repo)
	if err != nil {
		l.Info().Err(err).Str("method", string(creds.method())).Msg("login lookup failed")
		metrics.ObserveLogin(creds.method(), domain.ErrAuthFailure)

		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %w", domain.ErrAuthFailure, err)
		}

		return nil, err
	}

	return &Sequence{
		checker:   s.checker,
		account:   a,
		method:    creds.method(),
		remaining: s.maxAttempts,
	}, nil
}

// Sequence counts the PIN attempts of one login. Lockout is local to the
// sequence; a new Start gets a fresh counter.
type Sequence struct {
	checker PINChecker
	account domain.Account
	method  domain.LoginMethod

	mu        sync.Mutex
	remaining int
	done      bool
}

// Remaining returns the number of PIN attempts left.
func (q *Sequence) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.remaining
}

// Enter checks pin and opens a session on a match.
//
// A mismatch returns domain.ErrWrongPIN while attempts remain and
// domain.ErrLockedOut once they are used up. Every later call returns
// domain.ErrLockedOut, also after a successful login.
func (q *Sequence) Enter(pin string) (domain.Session, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.done || q.remaining <= 0 {
		return domain.Session{}, domain.ErrLockedOut
	}

	if err := q.checker.Check(pin, q.account.PINHash); err != nil {
		q.remaining--

		if q.remaining == 0 {
			metrics.ObserveLogin(q.method, domain.ErrLockedOut)
			return domain.Session{}, domain.ErrLockedOut
		}

		metrics.ObserveLogin(q.method, domain.ErrWrongPIN)

		return domain.Session{}, fmt.Errorf("%w, %d attempts remaining", domain.ErrWrongPIN, q.remaining)
	}

	q.done = true
	metrics.ObserveLogin(q.method, nil)

	return domain.Session{
		ID:        uuid.New(),
		AccountID: q.account.ID,
		Method:    q.method,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// PINSource supplies PIN attempts. It returns ErrNoMorePINs when exhausted.
type PINSource interface {
	NextPIN(ctx context.Context) (string, error)
}

// PINs is a PINSource over a fixed list of attempts.
type PINs []string

// NextPIN pops the next PIN of the list.
func (p *PINs) NextPIN(_ context.Context) (string, error) {
	if len(*p) == 0 {
		return "", ErrNoMorePINs
	}

	pin := (*p)[0]
	*p = (*p)[1:]

	return pin, nil
}

// Login runs a whole login sequence, pulling PINs from src until one matches,
// the attempts run out or src is exhausted.
//
// An exhausted source reports the last PIN mismatch, or ErrNoMorePINs if no PIN was tried.
func (s *Service) Login(ctx context.Context, creds Credentials, src PINSource) (domain.Session, error) {
	seq, err := s.Start(ctx, creds)
	if err != nil {
		return domain.Session{}, err
	}

	var lastErr error = ErrNoMorePINs

	for {
		if err := ctx.Err(); err != nil {
			return domain.Session{}, err
		}

		pin, err := src.NextPIN(ctx)
		if err != nil {
			if errors.Is(err, ErrNoMorePINs) {
				return domain.Session{}, lastErr
			}

			return domain.Session{}, err
		}

		session, err := seq.Enter(pin)
		if err == nil {
			zerolog.Ctx(ctx).Info().
				Str("account_id", session.AccountID).
				Str("method", string(session.Method)).
				Msg("logged in")

			return session, nil
		}

		if errors.Is(err, domain.ErrLockedOut) {
			zerolog.Ctx(ctx).Warn().Str("account_id", seq.account.ID).Msg("login locked out")
			return domain.Session{}, err
		}

		lastErr = err
	}
}
