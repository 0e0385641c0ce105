package locker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_AcquireAndRelease(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	acquired, err := l.Acquire(ctx, "execution:t1:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	// Second acquire on a held lock is refused, not an error.
	acquired, err = l.Acquire(ctx, "execution:t1:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)

	require.NoError(t, l.Release(ctx, "execution:t1:1"))

	acquired, err = l.Acquire(ctx, "execution:t1:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestMemoryLocker_IndependentKeys(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	acquired, err := l.Acquire(ctx, "execution:t1:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = l.Acquire(ctx, "execution:t1:2", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestMemoryLocker_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	acquired, err := l.Acquire(ctx, "execution:t1:1", 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, acquired)

	time.Sleep(20 * time.Millisecond)

	acquired, err = l.Acquire(ctx, "execution:t1:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired, "expired locks are reacquirable")
}

func TestMemoryLocker_ReleaseUnheldKey(t *testing.T) {
	l := NewMemoryLocker()

	assert.NoError(t, l.Release(context.Background(), "never-acquired"))
}
