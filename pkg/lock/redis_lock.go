package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only when it still holds this caller's
// token. Read-compare-delete must be one indivisible server-side step;
// done as separate commands, a holder whose lease expired could delete a
// lock that was already re-acquired by someone else.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`

// extendScript refreshes the TTL only for the current holder.
const extendScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("pexpire", KEYS[1], ARGV[2])
else
    return 0
end
`

var (
	unlockScript = redis.NewScript(releaseScript)
	renewScript  = redis.NewScript(extendScript)
)

// RedisLock distributed lock built on SET NX with a holder token
type RedisLock struct {
	client redis.Cmdable
	key    string
	token  string
}

// NewRedisLock creates a lock for the named resource. The key becomes
// "lock:<name>"; the token is unique to this instance.
func NewRedisLock(client redis.Cmdable, name string) *RedisLock {
	return &RedisLock{
		client: client,
		key:    KeyPrefix + name,
		token:  newHolderID(),
	}
}

// TryLock issues a conditional set of the holder token. Returns whether
// this call created the entry.
func (l *RedisLock) TryLock(ctx context.Context, lease time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.token, lease).Result()
}

// Unlock releases the lock via the atomic compare-and-delete script.
// A mismatched or missing token is a no-op, not a fault.
func (l *RedisLock) Unlock(ctx context.Context) error {
	return unlockScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}

// Extend refreshes the lease while held. Returns false if the lock is no
// longer held by this instance.
func (l *RedisLock) Extend(ctx context.Context, lease time.Duration) (bool, error) {
	result, err := renewScript.Run(ctx, l.client, []string{l.key}, l.token, lease.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// Held reports whether this instance currently holds the lock.
func (l *RedisLock) Held(ctx context.Context) (bool, error) {
	value, err := l.client.Get(ctx, l.key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	return value == l.token, nil
}
