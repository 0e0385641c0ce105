package locker

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker implements Locker in-process, for single-node deployments and
// tests.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]time.Time)}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	if expiry, held := l.locks[key]; held && now.Before(expiry) {
		return false, nil
	}

	l.locks[key] = now.Add(ttl)

	return true, nil
}

func (l *MemoryLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.locks, key)

	return nil
}
