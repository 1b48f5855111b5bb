package services

import (
	"sync"

	"github.com/google/uuid"
)

type challengeLock struct {
	mu   sync.Mutex
	refs int
}

// ChallengeLocks serializes work on a single challenge ID. Entries are
// dropped once nobody holds or waits for them.
type ChallengeLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*challengeLock
}

func NewChallengeLocks() *ChallengeLocks {
	return &ChallengeLocks{locks: make(map[uuid.UUID]*challengeLock)}
}

// Lock blocks until id is free and returns the matching unlock.
func (l *ChallengeLocks) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	lock, exists := l.locks[id]
	if !exists {
		lock = &challengeLock{}
		l.locks[id] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *ChallengeLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
