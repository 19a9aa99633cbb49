package service

import (
	"sort"
	"sync"
)

// accountLocks hands out one mutex per account id
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

func (a *accountLocks) get(accountID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.locks[accountID]; !exists {
		a.locks[accountID] = &sync.Mutex{}
	}
	return a.locks[accountID]
}

// lock acquires every distinct account in sorted order and returns the release func.
// Sorting keeps two opposite transfers from deadlocking.
func (a *accountLocks) lock(accountIDs ...string) func() {
	ids := make([]string, 0, len(accountIDs))
	seen := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	held := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		m := a.get(id)
		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
