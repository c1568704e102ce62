package services

import "sync"

// KeyedMutex serializes writers per key (listing id, offer chain root).
// Operations on different keys proceed in parallel; there is no global lock.
// Entries are never evicted, which is fine for the bounded key space of a
// single process lifetime.
type KeyedMutex struct {
	locks sync.Map // key -> *sync.Mutex
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *KeyedMutex) Lock(key string) func() {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
