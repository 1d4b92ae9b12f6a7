package dsa

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/dsa-wrapper/dsa_wrapper/internal/chain"
)

type account struct {
	address     common.Address
	authorities []common.Address
}

func (a *account) has(authority common.Address) bool {
	for _, existing := range a.authorities {
		if existing == authority {
			return true
		}
	}
	return false
}

// MemoryRegistry is an in-memory smart-account registry. Custody balances live
// in the shared Bank and token contracts under each account's address.
type MemoryRegistry struct {
	address common.Address
	bank    *chain.Bank
	tokens  chain.Directory

	mu       sync.RWMutex
	accounts map[AccountID]*account
	nextID   AccountID
}

// NewMemoryRegistry creates a registry deployed at address. Account addresses
// are derived from it the way contract factories derive child addresses.
func NewMemoryRegistry(address common.Address, bank *chain.Bank, tokens chain.Directory) *MemoryRegistry {
	return &MemoryRegistry{
		address:  address,
		bank:     bank,
		tokens:   tokens,
		accounts: make(map[AccountID]*account),
		nextID:   1,
	}
}

// Build creates a new account administered by the given authorities, in order.
func (r *MemoryRegistry) Build(_ context.Context, authorities ...common.Address) (AccountID, common.Address, error) {
	if len(authorities) == 0 {
		return 0, common.Address{}, fmt.Errorf("build account: at least one authority is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	acc := &account{address: crypto.CreateAddress(r.address, uint64(id))}
	for _, authority := range authorities {
		if !acc.has(authority) {
			acc.authorities = append(acc.authorities, authority)
		}
	}
	r.accounts[id] = acc
	return id, acc.address, nil
}

// ReserveThrough makes Build skip every id up to and including last. Call it
// with the highest id a persistent ledger already holds, so a fresh registry
// never hands out an id whose entries belong to an earlier account.
func (r *MemoryRegistry) ReserveThrough(last AccountID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if last >= r.nextID {
		r.nextID = last + 1
	}
}

// Accounts lists the ids of accounts where authority is a member.
func (r *MemoryRegistry) Accounts(authority common.Address) []AccountID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []AccountID
	for id := AccountID(1); id < r.nextID; id++ {
		if acc, ok := r.accounts[id]; ok && acc.has(authority) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *MemoryRegistry) Authorities(_ context.Context, id AccountID) ([]common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, err := r.account(id)
	if err != nil {
		return nil, err
	}
	out := make([]common.Address, len(acc.authorities))
	copy(out, acc.authorities)
	return out, nil
}

func (r *MemoryRegistry) AddAuthority(_ context.Context, id AccountID, authority common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, err := r.account(id)
	if err != nil {
		return err
	}
	if !acc.has(authority) {
		acc.authorities = append(acc.authorities, authority)
	}
	return nil
}

func (r *MemoryRegistry) RemoveAuthority(_ context.Context, id AccountID, authority common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, err := r.account(id)
	if err != nil {
		return err
	}
	kept := acc.authorities[:0]
	for _, existing := range acc.authorities {
		if existing != authority {
			kept = append(kept, existing)
		}
	}
	acc.authorities = kept
	return nil
}

func (r *MemoryRegistry) AccountAddress(_ context.Context, id AccountID) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, err := r.account(id)
	if err != nil {
		return common.Address{}, err
	}
	return acc.address, nil
}

func (r *MemoryRegistry) AcceptNative(ctx context.Context, id AccountID, from common.Address, amount decimal.Decimal) error {
	to, err := r.AccountAddress(ctx, id)
	if err != nil {
		return err
	}
	return r.bank.Transfer(ctx, from, to, amount)
}

func (r *MemoryRegistry) ReleaseNative(ctx context.Context, id AccountID, amount decimal.Decimal, recipient common.Address) error {
	from, err := r.AccountAddress(ctx, id)
	if err != nil {
		return err
	}
	return r.bank.Transfer(ctx, from, recipient, amount)
}

func (r *MemoryRegistry) ReleaseToken(ctx context.Context, id AccountID, token common.Address, amount decimal.Decimal, recipient common.Address) error {
	from, err := r.AccountAddress(ctx, id)
	if err != nil {
		return err
	}
	tok, err := r.tokens.Lookup(token)
	if err != nil {
		return err
	}
	return tok.Transfer(ctx, from, recipient, amount)
}

func (r *MemoryRegistry) account(id AccountID) (*account, error) {
	acc, ok := r.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, ErrUnknownAccount)
	}
	return acc, nil
}
