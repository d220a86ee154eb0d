// Package lock provides Redis-backed mutual exclusion usable across
// processes. Admission and persistence may run in different processes, so
// in-process synchronization is not enough to serialize multi-step logic.
package lock

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// KeyPrefix namespaces every lock key
const KeyPrefix = "lock:"

// Lock mutual exclusion across processes. Acquisition failure is a normal
// outcome (resource busy), not an error; release by a non-holder is a
// silent no-op.
type Lock interface {
	// TryLock attempts to acquire the lock with the given lease.
	// Non-blocking; retry policy belongs to the caller.
	TryLock(ctx context.Context, lease time.Duration) (bool, error)

	// Unlock releases the lock if and only if this instance still holds it.
	Unlock(ctx context.Context) error
}

// holderPrefix is unique per process; the counter makes tokens unique per
// lock instance, so a lease that expired and was re-acquired elsewhere can
// never be released by the old holder.
var (
	holderPrefix = uuid.NewString() + "-"
	holderSeq    atomic.Uint64
)

func newHolderID() string {
	return holderPrefix + strconv.FormatUint(holderSeq.Add(1), 10)
}

// TryLockWithRetry acquires the lock with a bounded retry loop and fixed
// backoff. An explicit loop keeps the retry budget inspectable and avoids
// unbounded stack growth.
func TryLockWithRetry(ctx context.Context, l Lock, lease time.Duration, retries int, backoff time.Duration) (bool, error) {
	for i := 0; ; i++ {
		ok, err := l.TryLock(ctx, lease)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if i >= retries {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
