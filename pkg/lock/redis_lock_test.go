package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		s.Close()
	})

	return s, client
}

func TestRedisLock(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()

	t.Run("AcquireAndRelease", func(t *testing.T) {
		l := NewRedisLock(client, "basic")

		ok, err := l.TryLock(ctx, time.Minute)
		assert.NoError(t, err)
		assert.True(t, ok)

		held, err := l.Held(ctx)
		assert.NoError(t, err)
		assert.True(t, held)

		assert.NoError(t, l.Unlock(ctx))

		held, err = l.Held(ctx)
		assert.NoError(t, err)
		assert.False(t, held)
	})

	t.Run("Contention", func(t *testing.T) {
		l1 := NewRedisLock(client, "contended")
		l2 := NewRedisLock(client, "contended")

		ok, err := l1.TryLock(ctx, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		// Second instance loses without error
		ok, err = l2.TryLock(ctx, time.Minute)
		assert.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, l1.Unlock(ctx))

		ok, err = l2.TryLock(ctx, time.Minute)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, l2.Unlock(ctx))
	})

	t.Run("NonHolderUnlockIsNoop", func(t *testing.T) {
		l1 := NewRedisLock(client, "noop")
		l2 := NewRedisLock(client, "noop")

		ok, err := l1.TryLock(ctx, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		// A non-holder release must neither error nor free the lock
		assert.NoError(t, l2.Unlock(ctx))

		held, err := l1.Held(ctx)
		assert.NoError(t, err)
		assert.True(t, held)

		require.NoError(t, l1.Unlock(ctx))
	})

	t.Run("StaleHolderCannotReleaseNewOwner", func(t *testing.T) {
		s, client := setupRedis(t)

		l1 := NewRedisLock(client, "expiring")
		ok, err := l1.TryLock(ctx, 50*time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)

		// Lease runs out and another instance takes over
		s.FastForward(100 * time.Millisecond)

		l2 := NewRedisLock(client, "expiring")
		ok, err = l2.TryLock(ctx, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		assert.NoError(t, l1.Unlock(ctx))

		held, err := l2.Held(ctx)
		assert.NoError(t, err)
		assert.True(t, held)
	})

	t.Run("Extend", func(t *testing.T) {
		s, client := setupRedis(t)

		l := NewRedisLock(client, "extend")
		ok, err := l.TryLock(ctx, 100*time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)

		held, err := l.Extend(ctx, time.Minute)
		assert.NoError(t, err)
		assert.True(t, held)

		// The refreshed lease survives the original deadline
		s.FastForward(time.Second)

		stillHeld, err := l.Held(ctx)
		assert.NoError(t, err)
		assert.True(t, stillHeld)
	})

	t.Run("ExtendAfterLoss", func(t *testing.T) {
		s, client := setupRedis(t)

		l := NewRedisLock(client, "lost")
		ok, err := l.TryLock(ctx, 50*time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)

		s.FastForward(100 * time.Millisecond)

		held, err := l.Extend(ctx, time.Minute)
		assert.NoError(t, err)
		assert.False(t, held)
	})
}

func TestTryLockWithRetry(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()

	t.Run("SucceedsFirstAttempt", func(t *testing.T) {
		l := NewRedisLock(client, "retry_free")
		ok, err := TryLockWithRetry(ctx, l, time.Minute, 3, time.Millisecond)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, l.Unlock(ctx))
	})

	t.Run("ExhaustsRetryBudget", func(t *testing.T) {
		holder := NewRedisLock(client, "retry_busy")
		ok, err := holder.TryLock(ctx, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		contender := NewRedisLock(client, "retry_busy")
		ok, err = TryLockWithRetry(ctx, contender, time.Minute, 2, time.Millisecond)
		assert.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, holder.Unlock(ctx))
	})

	t.Run("RespectsContextCancellation", func(t *testing.T) {
		holder := NewRedisLock(client, "retry_cancel")
		ok, err := holder.TryLock(ctx, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()

		contender := NewRedisLock(client, "retry_cancel")
		_, err = TryLockWithRetry(cancelCtx, contender, time.Minute, 10, 10*time.Millisecond)
		assert.ErrorIs(t, err, context.Canceled)

		require.NoError(t, holder.Unlock(ctx))
	})
}

func TestWatchdogLock(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()

	t.Run("RenewsWhileHeld", func(t *testing.T) {
		l := NewWatchdogLock(client, "watchdog")

		ok, err := l.TryLock(ctx, 90*time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)

		// Outlive the original lease; the watchdog keeps extending it
		time.Sleep(200 * time.Millisecond)

		held, err := l.inner.Held(ctx)
		assert.NoError(t, err)
		assert.True(t, held)

		assert.NoError(t, l.Unlock(ctx))

		held, err = l.inner.Held(ctx)
		assert.NoError(t, err)
		assert.False(t, held)
	})

	t.Run("ContendedAcquireFails", func(t *testing.T) {
		l1 := NewWatchdogLock(client, "watchdog_busy")
		ok, err := l1.TryLock(ctx, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		l2 := NewWatchdogLock(client, "watchdog_busy")
		ok, err = l2.TryLock(ctx, time.Minute)
		assert.NoError(t, err)
		assert.False(t, ok)

		assert.NoError(t, l1.Unlock(ctx))
	})
}

func TestHolderTokensAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token := newHolderID()
		assert.False(t, seen[token])
		seen[token] = true
	}
}
