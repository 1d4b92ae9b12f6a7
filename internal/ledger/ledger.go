package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/dsa-wrapper/dsa_wrapper/internal/dsa"
)

var (
	// ErrInsufficientFunds occurs when an entry holds less than the amount debited.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount rejects postings that are not positive or that the
	// entry column cannot hold exactly.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrMovementNotFound is returned when reverting a movement the ledger does not hold.
	ErrMovementNotFound = errors.New("movement not found")
)

const (
	// Scale is the number of fractional digits an entry stores.
	Scale = 18
	// MaxIntegerDigits bounds the whole part of an amount; entries are NUMERIC(78, 18).
	MaxIntegerDigits = 60
)

const (
	// KindDeposit marks a credit recorded for funds moved into an account.
	KindDeposit = "deposit"
	// KindWithdraw marks a debit recorded for funds released from an account.
	KindWithdraw = "withdraw"
)

// Posting describes a single ledger mutation request.
type Posting struct {
	Account dsa.AccountID
	Asset   Asset
	Amount  decimal.Decimal
	Actor   common.Address
}

// Movement is a journal row written for every applied posting.
type Movement struct {
	ID        string
	Account   dsa.AccountID
	Asset     Asset
	Kind      string
	Amount    decimal.Decimal
	Balance   decimal.Decimal
	Actor     common.Address
	CreatedAt time.Time
}

// Ledger records the net deposited amount per (account, asset). Entries start
// at zero and never go negative.
type Ledger interface {
	Balance(ctx context.Context, account dsa.AccountID, asset Asset) (decimal.Decimal, error)
	Credit(ctx context.Context, p Posting) (Movement, error)
	// Debit checks and decrements the entry in one atomic step.
	Debit(ctx context.Context, p Posting) (Movement, error)
	// Revert undoes a movement, restoring the entry and dropping the journal row.
	Revert(ctx context.Context, m Movement) error
	History(ctx context.Context, account dsa.AccountID, asset Asset) ([]Movement, error)
	// LastAccount returns the highest account id holding an entry or a
	// movement, or zero for an empty ledger.
	LastAccount(ctx context.Context) (dsa.AccountID, error)
}

// CheckAmount accepts strictly positive amounts with at most Scale fractional
// digits and MaxIntegerDigits whole digits, so stored values are never rounded.
// It inspects only the coefficient and exponent and never rescales.
func CheckAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	exp := int64(amount.Exponent())
	if exp < -Scale {
		return ErrInvalidAmount
	}
	if int64(amount.NumDigits())+exp > MaxIntegerDigits {
		return ErrInvalidAmount
	}
	return nil
}

func validate(p Posting) error {
	return CheckAmount(p.Amount)
}
