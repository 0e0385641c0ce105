// Package locker provides the per-execution lock workers take before
// processing, a defensive guard against double-processing on top of the job
// queue's delivery guarantees.
package locker

import (
	"context"
	"time"
)

// Locker grants exclusive short-lived ownership of a key.
type Locker interface {
	// Acquire attempts to take the lock. It returns false when the lock is
	// already held elsewhere.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release gives the lock back. Releasing an unheld lock is a no-op.
	Release(ctx context.Context, key string) error
}
