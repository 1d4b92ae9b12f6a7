// Package chain holds the in-memory value layer the wrapper moves funds
// through: a native-currency balance book and ERC-20 style token contracts.
package chain

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientBalance is returned when the sender holds less than the amount moved.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientAllowance is returned when a spender was approved for less than the amount pulled.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	// ErrInvalidAmount rejects zero and negative transfers.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrUnknownToken indicates no token contract is deployed at the address.
	ErrUnknownToken = errors.New("unknown token")
)

// ERC20 is the fungible-token capability consumed by the registry and the wrapper.
type ERC20 interface {
	Address() common.Address
	BalanceOf(holder common.Address) decimal.Decimal
	Transfer(ctx context.Context, from, to common.Address, amount decimal.Decimal) error
	TransferFrom(ctx context.Context, spender, holder, to common.Address, amount decimal.Decimal) error
}

// Directory resolves token contracts by address.
type Directory interface {
	Lookup(token common.Address) (ERC20, error)
}
