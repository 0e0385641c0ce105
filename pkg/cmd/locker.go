package cmd

import (
	"fmt"

	"github.com/cascadeflow/cascade/pkg/locker"
)

// NewLocker returns a Redis-backed locker when a URL is provided, otherwise an
// in-process one. Single-instance deployments don't need Redis.
func NewLocker(redisURL string) locker.Locker {
	if redisURL == "" {
		return locker.NewMemoryLocker()
	}

	l, err := locker.NewRedisLocker(redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to connect to redis: %w", err))
	}

	return l
}
