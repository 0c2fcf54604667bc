package memstore

import (
	"context"
	"time"

	"github.com/go-petr/pet-atm/internal/domain"
	"github.com/shopspring/decimal"
)

// tx buffers the writes of a single ExecTx call.
type tx struct {
	s        *Store
	held     map[string]chan struct{}
	accounts map[string]domain.Account // pending account states
	created  map[string]bool
	appends  []domain.Transaction
}

func (t *tx) lock(ctx context.Context, id string) error {
	if _, ok := t.held[id]; ok {
		return nil
	}

	l := t.s.lockFor(id)

	var timeout <-chan time.Time
	if t.s.lockTimeout > 0 {
		timer := time.NewTimer(t.s.lockTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case l <- struct{}{}:
		t.held[id] = l
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return domain.ErrConcurrencyConflict
	}
}

func (t *tx) release() {
	for id, l := range t.held {
		<-l
		delete(t.held, id)
	}
}

// current returns the account as seen by this transaction.
func (t *tx) current(id string) (domain.Account, bool) {
	if a, ok := t.accounts[id]; ok {
		return a, true
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	a, ok := t.s.accounts[id]

	return clone(a), ok
}

func (t *tx) exists(id string) bool {
	if _, ok := t.accounts[id]; ok {
		return true
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	_, ok := t.s.accounts[id]

	return ok
}

func (t *tx) CreateAccount(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	if err := t.lock(ctx, arg.ID); err != nil {
		return domain.Account{}, err
	}

	if t.exists(arg.ID) {
		return domain.Account{}, domain.ErrAccountExists
	}

	a := domain.Account{
		ID:        arg.ID,
		Name:      arg.Name,
		PINHash:   arg.PINHash,
		Balance:   arg.Balance,
		CreatedAt: time.Now().UTC(),
	}

	if arg.Card != nil {
		c := *arg.Card
		a.Card = &c

		key := cardKey(a.Card)

		t.s.mu.RLock()
		_, taken := t.s.cards[key]
		t.s.mu.RUnlock()

		for id := range t.created {
			if cardKey(t.accounts[id].Card) == key {
				taken = true
			}
		}

		if taken {
			return domain.Account{}, domain.ErrAccountExists
		}
	}

	t.accounts[a.ID] = a
	t.created[a.ID] = true

	return clone(a), nil
}

func (t *tx) GetAccountForUpdate(ctx context.Context, id string) (domain.Account, error) {
	if !t.exists(id) {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	if err := t.lock(ctx, id); err != nil {
		return domain.Account{}, err
	}

	a, _ := t.current(id)

	return clone(a), nil
}

func (t *tx) CompareAndUpdateBalance(ctx context.Context, id string, expected, balance decimal.Decimal) (bool, error) {
	if err := t.lock(ctx, id); err != nil {
		return false, err
	}

	a, ok := t.current(id)
	if !ok || !a.Balance.Equal(expected) {
		return false, nil
	}

	a.Balance = balance
	t.accounts[id] = a

	return true, nil
}

func (t *tx) UpdatePINHash(ctx context.Context, id, pinHash string) error {
	if err := t.lock(ctx, id); err != nil {
		return err
	}

	a, ok := t.current(id)
	if !ok {
		return domain.ErrAccountNotFound
	}

	a.PINHash = pinHash
	t.accounts[id] = a

	return nil
}

func (t *tx) AppendTransaction(ctx context.Context, arg domain.AppendTransactionParams) (domain.Transaction, error) {
	if !arg.Amount.IsPositive() {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}

	if err := t.lock(ctx, arg.AccountID); err != nil {
		return domain.Transaction{}, err
	}

	if !t.exists(arg.AccountID) {
		return domain.Transaction{}, domain.ErrAccountNotFound
	}

	id, now := t.s.nextEntry()

	e := domain.Transaction{
		ID:           id,
		AccountID:    arg.AccountID,
		Kind:         arg.Kind,
		Amount:       arg.Amount,
		Description:  arg.Description,
		BalanceAfter: arg.BalanceAfter,
		CreatedAt:    now,
	}

	t.appends = append(t.appends, e)

	return e, nil
}

// commit publishes the buffered writes. Created accounts are checked again
// for id and card collisions against concurrently committed ones.
func (t *tx) commit() error {
	s := t.s

	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range t.created {
		if _, ok := s.accounts[id]; ok {
			return domain.ErrAccountExists
		}

		if key := cardKey(t.accounts[id].Card); key != "" {
			if _, ok := s.cards[key]; ok {
				return domain.ErrAccountExists
			}
		}
	}

	for id, a := range t.accounts {
		s.accounts[id] = a

		if key := cardKey(a.Card); key != "" && t.created[id] {
			s.cards[key] = id
		}
	}

	for _, e := range t.appends {
		s.logs[e.AccountID] = append(s.logs[e.AccountID], e)
	}

	return nil
}
