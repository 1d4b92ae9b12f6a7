package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dsa-wrapper/dsa_wrapper/internal/dsa"
)

type entryKey struct {
	account dsa.AccountID
	asset   Asset
}

type inMemoryLedger struct {
	mu        sync.RWMutex
	balances  map[entryKey]decimal.Decimal
	movements []Movement
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests
// and single-process deployments.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		balances: make(map[entryKey]decimal.Decimal),
	}
}

func (l *inMemoryLedger) Balance(_ context.Context, account dsa.AccountID, asset Asset) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[entryKey{account, asset}], nil
}

func (l *inMemoryLedger) Credit(_ context.Context, p Posting) (Movement, error) {
	if err := validate(p); err != nil {
		return Movement{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := entryKey{p.Account, p.Asset}
	balance := l.balances[key].Add(p.Amount)
	l.balances[key] = balance
	return l.record(p, KindDeposit, balance), nil
}

func (l *inMemoryLedger) Debit(_ context.Context, p Posting) (Movement, error) {
	if err := validate(p); err != nil {
		return Movement{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := entryKey{p.Account, p.Asset}
	balance := l.balances[key]
	if balance.LessThan(p.Amount) {
		return Movement{}, ErrInsufficientFunds
	}
	balance = balance.Sub(p.Amount)
	l.balances[key] = balance
	return l.record(p, KindWithdraw, balance), nil
}

func (l *inMemoryLedger) Revert(_ context.Context, m Movement) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i := range l.movements {
		if l.movements[i].ID == m.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrMovementNotFound
	}
	stored := l.movements[idx]

	key := entryKey{stored.Account, stored.Asset}
	balance := l.balances[key]
	switch stored.Kind {
	case KindWithdraw:
		balance = balance.Add(stored.Amount)
	default:
		if balance.LessThan(stored.Amount) {
			return ErrInsufficientFunds
		}
		balance = balance.Sub(stored.Amount)
	}
	l.balances[key] = balance
	l.movements = append(l.movements[:idx], l.movements[idx+1:]...)
	return nil
}

func (l *inMemoryLedger) History(_ context.Context, account dsa.AccountID, asset Asset) ([]Movement, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Movement
	for _, m := range l.movements {
		if m.Account == account && m.Asset == asset {
			out = append(out, m)
		}
	}
	return out, nil
}

// record appends a journal row; callers hold l.mu.
func (l *inMemoryLedger) LastAccount(_ context.Context) (dsa.AccountID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var last dsa.AccountID
	for k := range l.balances {
		last = max(last, k.account)
	}
	for _, m := range l.movements {
		last = max(last, m.Account)
	}
	return last, nil
}

func (l *inMemoryLedger) record(p Posting, kind string, balance decimal.Decimal) Movement {
	m := Movement{
		ID:        uuid.NewString(),
		Account:   p.Account,
		Asset:     p.Asset,
		Kind:      kind,
		Amount:    p.Amount,
		Balance:   balance,
		Actor:     p.Actor,
		CreatedAt: time.Now().UTC(),
	}
	l.movements = append(l.movements, m)
	return m
}
