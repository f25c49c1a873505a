package payments

import (
	"sync"
)

// LockManager manages per-event locks to prevent concurrent webhook
// processing for the same event ID while allowing parallel processing of
// different events. This is only an in-process fast path: the durable
// exclusion across replicas is the unique event ID constraint enforced at
// transaction commit time.
type LockManager struct {
	locks sync.Map // map[string]*sync.Mutex
}

// NewLockManager creates a new lock manager
func NewLockManager() *LockManager {
	return &LockManager{}
}

// Lock acquires the lock for the given key.
// Returns a function that must be called to release the lock.
func (lm *LockManager) Lock(key string) func() {
	lockInterface, _ := lm.locks.LoadOrStore(key, &sync.Mutex{})
	lock, ok := lockInterface.(*sync.Mutex)
	if !ok {
		// This should never happen if we only store *sync.Mutex values
		panic("unexpected type in lock manager")
	}

	lock.Lock()
	return func() {
		lock.Unlock()
	}
}

// CleanupLocks removes locks that are not currently held. It can be called
// periodically to keep the map from growing with one entry per event seen.
func (lm *LockManager) CleanupLocks() {
	lm.locks.Range(func(key, value any) bool {
		lock, ok := value.(*sync.Mutex)
		if !ok {
			return true
		}
		if lock.TryLock() {
			lock.Unlock()
			lm.locks.Delete(key)
		}
		return true
	})
}
