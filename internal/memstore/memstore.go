// Package memstore implements the ledger store in process memory.
//
// Every account has its own lock which a transaction holds from the first
// locking access until it commits or rolls back. Writes are buffered in the
// transaction and published at once on commit, so readers only ever see
// committed state.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/go-petr/pet-atm/internal/domain"
	"github.com/go-petr/pet-atm/internal/ledgerstore"
	"github.com/go-petr/pet-atm/pkg/cardpkg"
)

// Store keeps accounts and their logs in memory.
type Store struct {
	lockTimeout time.Duration

	locksMu sync.Mutex
	locks   map[string]chan struct{}

	mu       sync.RWMutex
	accounts map[string]domain.Account
	cards    map[string]string // card digits -> account id
	logs     map[string][]domain.Transaction
	lastTxID int64
	lastTime time.Time
}

// New returns an empty Store.
//
// lockTimeout bounds the wait for an account lock. Zero waits until the context is done.
func New(lockTimeout time.Duration) *Store {
	return &Store{
		lockTimeout: lockTimeout,
		locks:       make(map[string]chan struct{}),
		accounts:    make(map[string]domain.Account),
		cards:       make(map[string]string),
		logs:        make(map[string][]domain.Transaction),
	}
}

func (s *Store) lockFor(id string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[id] = l
	}

	return l
}

// nextEntry reserves a log entry id and a timestamp not earlier than any issued before.
func (s *Store) nextEntry() (int64, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if now.Before(s.lastTime) {
		now = s.lastTime
	}

	s.lastTime = now
	s.lastTxID++

	return s.lastTxID, now
}

// ExecTx runs fn in a transaction. Locks taken by fn are released after commit or rollback.
func (s *Store) ExecTx(ctx context.Context, fn func(q ledgerstore.Querier) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t := &tx{
		s:        s,
		held:     make(map[string]chan struct{}),
		accounts: make(map[string]domain.Account),
		created:  make(map[string]bool),
	}
	defer t.release()

	if err := fn(t); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return t.commit()
}

// GetAccount returns the committed state of the account.
func (s *Store) GetAccount(_ context.Context, id string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return clone(a), nil
}

// FindAccountByCard returns the account owning the card.
func (s *Store) FindAccountByCard(_ context.Context, cardDigits, cvv string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.cards[cardDigits]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	a := s.accounts[id]
	if a.Card == nil || a.Card.CVV != cvv {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return clone(a), nil
}

// QueryTransactions returns committed log entries selected by arg, oldest first.
func (s *Store) QueryTransactions(_ context.Context, arg domain.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := []domain.Transaction{}

	for _, e := range s.logs[arg.AccountID] {
		if arg.Since != nil && e.CreatedAt.Before(*arg.Since) {
			continue
		}

		if arg.Until != nil && !e.CreatedAt.Before(*arg.Until) {
			continue
		}

		items = append(items, e)
	}

	if arg.Limit > 0 && len(items) > int(arg.Limit) {
		items = items[len(items)-int(arg.Limit):]
	}

	return items, nil
}

// CountTransactions returns the length of the account's log.
func (s *Store) CountTransactions(_ context.Context, accountID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.logs[accountID])), nil
}

func clone(a domain.Account) domain.Account {
	if a.Card != nil {
		c := *a.Card
		a.Card = &c
	}

	return a
}

func cardKey(c *domain.Card) string {
	if c == nil {
		return ""
	}

	return cardpkg.Sanitize(c.Number)
}
