package service

import (
	"sync"

	"github.com/yolokazi-cloud/MarketingApp1/internal/domain"
)

// kindLocks serializes version creation and rebuilds per record kind.
type kindLocks struct {
	mu    sync.Mutex
	locks map[domain.RecordKind]*sync.Mutex
}

func newKindLocks() *kindLocks {
	return &kindLocks{locks: make(map[domain.RecordKind]*sync.Mutex)}
}

// lock acquires the mutex of kind and returns its release func.
func (k *kindLocks) lock(kind domain.RecordKind) func() {
	k.mu.Lock()
	m, ok := k.locks[kind]
	if !ok {
		m = &sync.Mutex{}
		k.locks[kind] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
