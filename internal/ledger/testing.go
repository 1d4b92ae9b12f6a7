package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/dsa-wrapper/dsa_wrapper/internal/dsa"
)

// SeedBalance is a test helper that seeds an entry when using the in-memory ledger.
func SeedBalance(l Ledger, account dsa.AccountID, asset Asset, amount decimal.Decimal) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[entryKey{account, asset}] = amount
	}
}
