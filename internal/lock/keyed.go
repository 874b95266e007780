package lock

import "sync"

// Keyed provides a mutex per string key. It serializes writers for one
// conversation while leaving other conversations fully parallel.
// Mutexes are created on first use and kept for the process lifetime;
// the key space (one entry per active conversation) is small enough
// that no eviction is needed.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyed creates an empty keyed mutex table.
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it if needed.
func (k *Keyed) Lock(key string) {
	k.mutexFor(key).Lock()
}

// Unlock releases the mutex for key. Panics if Lock was not called first,
// same as sync.Mutex.
func (k *Keyed) Unlock(key string) {
	k.mutexFor(key).Unlock()
}

func (k *Keyed) mutexFor(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}
