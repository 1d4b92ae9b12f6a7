package wrapper

import (
	"sync"

	"github.com/dsa-wrapper/dsa_wrapper/internal/dsa"
)

// accountLocks serializes authority changes per account.
type accountLocks struct {
	mu    sync.Mutex
	locks map[dsa.AccountID]*sync.Mutex
}

func (l *accountLocks) lock(id dsa.AccountID) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[dsa.AccountID]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
