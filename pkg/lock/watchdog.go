package lock

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"dealhub/pkg/log"
)

// WatchdogLock wraps RedisLock with automatic lease renewal for long-held
// locks. The contract is the same as RedisLock; only the lease management
// differs, the way a managed lock service would do it.
type WatchdogLock struct {
	inner *RedisLock

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatchdogLock creates a renewing lock for the named resource
func NewWatchdogLock(client redis.Cmdable, name string) *WatchdogLock {
	return &WatchdogLock{inner: NewRedisLock(client, name)}
}

// TryLock acquires the lock and starts a renewal goroutine that extends
// the lease at lease/3 intervals until Unlock is called or renewal fails.
func (l *WatchdogLock) TryLock(ctx context.Context, lease time.Duration) (bool, error) {
	ok, err := l.inner.TryLock(ctx, lease)
	if err != nil || !ok {
		return ok, err
	}

	renewCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	l.mu.Lock()
	l.cancel = cancel
	l.done = done
	l.mu.Unlock()

	go l.renew(renewCtx, lease, done)
	return true, nil
}

func (l *WatchdogLock) renew(ctx context.Context, lease time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(lease / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			held, err := l.inner.Extend(ctx, lease)
			if err != nil {
				log.WithError(err).Warnf("Lock renewal failed for %s", l.inner.key)
				continue
			}
			if !held {
				// Lost the lease; nothing left to renew.
				return
			}
		}
	}
}

// Unlock stops the renewal goroutine and releases the lock
func (l *WatchdogLock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	return l.inner.Unlock(ctx)
}
