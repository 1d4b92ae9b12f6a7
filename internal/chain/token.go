package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Token is an in-memory ERC-20 contract with balances and allowances.
type Token struct {
	address common.Address
	symbol  string

	mu         sync.Mutex
	balances   map[common.Address]decimal.Decimal
	allowances map[common.Address]map[common.Address]decimal.Decimal
}

// NewToken deploys an empty token at address.
func NewToken(address common.Address, symbol string) *Token {
	return &Token{
		address:    address,
		symbol:     symbol,
		balances:   make(map[common.Address]decimal.Decimal),
		allowances: make(map[common.Address]map[common.Address]decimal.Decimal),
	}
}

func (t *Token) Address() common.Address { return t.address }

func (t *Token) Symbol() string { return t.symbol }

// Mint creates amount new tokens owned by to.
func (t *Token) Mint(to common.Address, amount decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[to] = t.balances[to].Add(amount)
}

func (t *Token) BalanceOf(holder common.Address) decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[holder]
}

func (t *Token) Allowance(owner, spender common.Address) decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allowances[owner][spender]
}

// Approve sets the amount spender may pull from owner, replacing any previous allowance.
func (t *Token) Approve(owner, spender common.Address, amount decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[common.Address]decimal.Decimal)
	}
	t.allowances[owner][spender] = amount
}

func (t *Token) Transfer(_ context.Context, from, to common.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(from, to, amount)
}

// TransferFrom moves amount from holder to to, spending spender's allowance.
func (t *Token) TransferFrom(_ context.Context, spender, holder, to common.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	allowance := t.allowances[holder][spender]
	if allowance.LessThan(amount) {
		return fmt.Errorf("%s transferFrom by %s: %w", t.symbol, spender.Hex(), ErrInsufficientAllowance)
	}
	if err := t.move(holder, to, amount); err != nil {
		return err
	}
	t.allowances[holder][spender] = allowance.Sub(amount)
	return nil
}

func (t *Token) move(from, to common.Address, amount decimal.Decimal) error {
	fromBalance := t.balances[from]
	if fromBalance.LessThan(amount) {
		return fmt.Errorf("%s transfer from %s: %w", t.symbol, from.Hex(), ErrInsufficientBalance)
	}
	t.balances[from] = fromBalance.Sub(amount)
	t.balances[to] = t.balances[to].Add(amount)
	return nil
}

// Tokens is a concurrency-safe Directory of deployed tokens.
type Tokens struct {
	mu        sync.RWMutex
	byAddress map[common.Address]ERC20
}

// NewTokens builds a directory pre-populated with the given tokens.
func NewTokens(tokens ...ERC20) *Tokens {
	d := &Tokens{byAddress: make(map[common.Address]ERC20)}
	for _, tok := range tokens {
		d.byAddress[tok.Address()] = tok
	}
	return d
}

// Register adds or replaces a token in the directory.
func (d *Tokens) Register(tok ERC20) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byAddress[tok.Address()] = tok
}

func (d *Tokens) Lookup(token common.Address) (ERC20, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tok, ok := d.byAddress[token]
	if !ok {
		return nil, fmt.Errorf("%s: %w", token.Hex(), ErrUnknownToken)
	}
	return tok, nil
}
