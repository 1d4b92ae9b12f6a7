// Package dsa describes the smart-account registry the wrapper administers and
// ships an in-memory registry implementing the same capability contract.
package dsa

import (
	"context"
	"errors"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ErrUnknownAccount indicates no account exists for the handle.
var ErrUnknownAccount = errors.New("unknown dsa account")

// AccountID is the registry handle of a smart account (the DSA id).
type AccountID uint64

func (id AccountID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseAccountID parses a decimal DSA id.
func ParseAccountID(s string) (AccountID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return AccountID(v), nil
}

// Registry is the external smart-account system. Each call either fully
// succeeds or fully fails.
type Registry interface {
	// Authorities returns the current authority set of the account.
	Authorities(ctx context.Context, id AccountID) ([]common.Address, error)
	AddAuthority(ctx context.Context, id AccountID, authority common.Address) error
	RemoveAuthority(ctx context.Context, id AccountID, authority common.Address) error

	// AccountAddress returns the custody address of the account.
	AccountAddress(ctx context.Context, id AccountID) (common.Address, error)

	// AcceptNative moves amount of native currency from into the account's custody.
	AcceptNative(ctx context.Context, id AccountID, from common.Address, amount decimal.Decimal) error
	// ReleaseNative pays amount of native currency out of the account to recipient.
	ReleaseNative(ctx context.Context, id AccountID, amount decimal.Decimal, recipient common.Address) error
	// ReleaseToken pays amount of token out of the account to recipient.
	ReleaseToken(ctx context.Context, id AccountID, token common.Address, amount decimal.Decimal, recipient common.Address) error
}
