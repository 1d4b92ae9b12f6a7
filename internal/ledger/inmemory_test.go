package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	actor = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	usdc  = TokenAsset(common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"))
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestInMemoryLedger_BalanceStartsAtZero(t *testing.T) {
	l := NewInMemory()
	bal, err := l.Balance(context.Background(), 7, Native)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !bal.IsZero() {
		t.Fatalf("expected zero balance, got %s", bal)
	}
}

func TestInMemoryLedger_CreditAndDebit(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	m, err := l.Credit(ctx, Posting{Account: 1, Asset: Native, Amount: dec("1"), Actor: actor})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if m.Kind != KindDeposit || !m.Balance.Equal(dec("1")) {
		t.Fatalf("unexpected movement: %+v", m)
	}

	m, err = l.Debit(ctx, Posting{Account: 1, Asset: Native, Amount: dec("0.6"), Actor: actor})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !m.Balance.Equal(dec("0.4")) {
		t.Fatalf("expected balance 0.4, got %s", m.Balance)
	}

	if _, err := l.Debit(ctx, Posting{Account: 1, Asset: Native, Amount: dec("0.5"), Actor: actor}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	bal, _ := l.Balance(ctx, 1, Native)
	if !bal.Equal(dec("0.4")) {
		t.Fatalf("failed debit changed balance to %s", bal)
	}

	// Entries are keyed by asset as well as account.
	if bal, _ := l.Balance(ctx, 1, usdc); !bal.IsZero() {
		t.Fatalf("expected untouched token entry, got %s", bal)
	}
}

func TestInMemoryLedger_RejectsNonPositiveAmounts(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	if _, err := l.Credit(ctx, Posting{Account: 1, Asset: Native, Amount: decimal.Zero}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := l.Debit(ctx, Posting{Account: 1, Asset: Native, Amount: dec("-1")}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestCheckAmount(t *testing.T) {
	valid := []string{"1", "0.000000000000000001", "123456789012345678901234567890123456789012345678901234567890"}
	for _, amount := range valid {
		if err := CheckAmount(dec(amount)); err != nil {
			t.Fatalf("%s: unexpected error %v", amount, err)
		}
	}
	invalid := []string{"0", "-1", "0.0000000000000000001", "1e-5000000", "1e60", "1234567890123456789012345678901234567890123456789012345678901"}
	for _, amount := range invalid {
		if err := CheckAmount(dec(amount)); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%s: expected invalid amount, got %v", amount, err)
		}
	}
}

func TestInMemoryLedger_RejectsUnstorableAmounts(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, 1, Native, dec("1"))
	if _, err := l.Debit(ctx, Posting{Account: 1, Asset: Native, Amount: dec("4e-19")}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if bal, _ := l.Balance(ctx, 1, Native); !bal.Equal(dec("1")) {
		t.Fatalf("expected balance 1, got %s", bal)
	}
}

func TestInMemoryLedger_LastAccount(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	if last, err := l.LastAccount(ctx); err != nil || last != 0 {
		t.Fatalf("expected 0 for empty ledger, got %d (%v)", last, err)
	}
	if _, err := l.Credit(ctx, Posting{Account: 7, Asset: Native, Amount: dec("1"), Actor: actor}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := l.Debit(ctx, Posting{Account: 7, Asset: Native, Amount: dec("1"), Actor: actor}); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if _, err := l.Credit(ctx, Posting{Account: 3, Asset: usdc, Amount: dec("1"), Actor: actor}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	// Account 7 is back at zero but still holds an entry.
	if last, err := l.LastAccount(ctx); err != nil || last != 7 {
		t.Fatalf("expected 7, got %d (%v)", last, err)
	}
}

func TestInMemoryLedger_RevertRestoresEntryAndJournal(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, 3, usdc, dec("1"))

	m, err := l.Debit(ctx, Posting{Account: 3, Asset: usdc, Amount: dec("0.4"), Actor: actor})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if err := l.Revert(ctx, m); err != nil {
		t.Fatalf("revert: %v", err)
	}
	bal, _ := l.Balance(ctx, 3, usdc)
	if !bal.Equal(dec("1")) {
		t.Fatalf("expected restored balance 1, got %s", bal)
	}
	history, _ := l.History(ctx, 3, usdc)
	if len(history) != 0 {
		t.Fatalf("expected reverted movement to be dropped, got %d rows", len(history))
	}
	if err := l.Revert(ctx, m); !errors.Is(err, ErrMovementNotFound) {
		t.Fatalf("expected movement not found, got %v", err)
	}
}

func TestInMemoryLedger_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, 1, Native, dec("5"))

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Debit(ctx, Posting{Account: 1, Asset: Native, Amount: dec("1"), Actor: actor})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("unexpected debit error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Fatalf("expected exactly 5 successful debits, got %d", succeeded)
	}
	bal, _ := l.Balance(ctx, 1, Native)
	if !bal.IsZero() {
		t.Fatalf("expected drained entry, got %s", bal)
	}
}

func TestParseAsset(t *testing.T) {
	a, err := ParseAsset("NATIVE")
	if err != nil || !a.IsNative() {
		t.Fatalf("expected native asset, got %v %v", a, err)
	}
	a, err = ParseAsset(usdc.String())
	if err != nil || a != usdc {
		t.Fatalf("expected token asset round trip, got %v %v", a, err)
	}
	if _, err := ParseAsset("not-an-address"); err == nil {
		t.Fatal("expected parse error")
	}
}
