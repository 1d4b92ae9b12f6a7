package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Bank keeps native-currency balances per address.
type Bank struct {
	mu       sync.Mutex
	balances map[common.Address]decimal.Decimal
}

// NewBank creates an empty balance book.
func NewBank() *Bank {
	return &Bank{balances: make(map[common.Address]decimal.Decimal)}
}

// Fund credits amount to holder out of thin air. Used for genesis and tests.
func (b *Bank) Fund(holder common.Address, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[holder] = b.balances[holder].Add(amount)
}

// BalanceOf returns the native balance of holder.
func (b *Bank) BalanceOf(holder common.Address) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[holder]
}

// Transfer moves amount from one address to another.
func (b *Bank) Transfer(_ context.Context, from, to common.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	fromBalance := b.balances[from]
	if fromBalance.LessThan(amount) {
		return fmt.Errorf("native transfer from %s: %w", from.Hex(), ErrInsufficientBalance)
	}
	b.balances[from] = fromBalance.Sub(amount)
	b.balances[to] = b.balances[to].Add(amount)
	return nil
}
