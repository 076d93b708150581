package allocator

import (
	"sync"
	"time"

	"github.com/jakechorley/manpower/pkg/core/model"
)

// KeyedLocker serializes work per key. Allocation passes for the same
// sub-section and date must not interleave; different keys run in parallel.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*keyLock)}
}

// Lock blocks until the key is free and returns the function that releases it
func (k *KeyedLocker) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// PlanKey is the lock key for a sub-section and date
func PlanKey(subSectionID string, date time.Time) string {
	return subSectionID + "|" + model.DayStart(date).Format(time.DateOnly)
}
