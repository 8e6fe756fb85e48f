// Package singleflight provides a keyed mutual-exclusion guard. It
// serializes operations per key: at most one holder per key at a time,
// while distinct keys never block each other.
//
// The guard deduplicates concurrency, not work: a caller that blocked
// behind another holder still performs its own full operation once it
// acquires the key.
package singleflight

import "sync"

// Guard is a registry of per-key mutexes. The zero value is not usable;
// create one with New.
//
// Lock entries are never evicted, so the registry grows with the number of
// distinct keys seen over the process lifetime. That is acceptable for a
// bounded key cardinality; this is not a cache.
type Guard struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an empty Guard.
func New() *Guard {
	return &Guard{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until no other caller holds key, then marks it held.
// The registry mutex is held only for the get-or-create step, never for
// the hold duration of the per-key lock.
func (g *Guard) Acquire(key string) {
	g.mu.Lock()
	lock, ok := g.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[key] = lock
	}
	g.mu.Unlock()

	lock.Lock()
}

// Release releases key. Releasing a key that was never acquired is a no-op.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	lock := g.locks[key]
	g.mu.Unlock()

	if lock != nil {
		lock.Unlock()
	}
}
