package session

import "sync"

// userLocks serializes sessions per user key. Two queries for the same user
// must not interleave their fetch/append/prune sequences, or pruning could
// race an in-flight append and drop a just-written turn. Queries for
// different users share nothing and proceed in parallel.
//
// Locks are created on first use and never released; the set of users a bot
// talks to is small and stable, so the table stays tiny.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

// get returns the mutex for the given user key, creating it if needed.
func (l *userLocks) get(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}
