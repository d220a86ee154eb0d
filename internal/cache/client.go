// Package cache implements the cache-aside client in front of Redis with
// two independent stampede defenses: negative caching with TTL jitter for
// penetration, and logical expiry with single-flight rebuild for breakdown.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/redis/go-redis/v9"

	"dealhub/internal/monitor"
	"dealhub/pkg/lock"
	"dealhub/pkg/log"
)

// ErrNotFound the entity does not exist, either confirmed by the loader or
// by a negative-cache marker
var ErrNotFound = errors.New("entity not found")

// Options cache client tuning
type Options struct {
	// NullTTL is the lifetime of negative-cache markers
	NullTTL time.Duration
	// JitterRatio randomizes physical TTLs by up to this fraction so mass
	// writes do not expire in the same instant
	JitterRatio float64
	// RebuildLease is the lock lease held during an async rebuild
	RebuildLease time.Duration
	// LocalTTL enables a bigcache hot tier in front of Redis when > 0
	LocalTTL time.Duration
}

// Client cache-aside helper over Redis. Generic reads are the package
// functions QueryWithPassThrough and QueryWithLogicalExpire.
type Client struct {
	rdb  redis.Cmdable
	pool *RebuildPool
	opts Options

	local *bigcache.BigCache

	// filterMu guards filter; bloom filters are not safe for concurrent use
	filterMu sync.RWMutex
	filter   *bloom.BloomFilter
}

// redisValue wraps a payload with its logical expiry. The store never
// evicts these entries; staleness is judged against ExpireAt at read time.
type redisValue struct {
	Data     json.RawMessage `json:"data"`
	ExpireAt time.Time       `json:"expire_at"`
}

// NewClient creates a cache client. The pool drives logical-expiry
// rebuilds and must outlive the client.
func NewClient(rdb redis.Cmdable, pool *RebuildPool, opts Options) *Client {
	if opts.NullTTL == 0 {
		opts.NullTTL = 2 * time.Minute
	}
	if opts.JitterRatio == 0 {
		opts.JitterRatio = 0.1
	}
	if opts.RebuildLease == 0 {
		opts.RebuildLease = 10 * time.Second
	}

	c := &Client{rdb: rdb, pool: pool, opts: opts}

	if opts.LocalTTL > 0 {
		localCache, err := bigcache.New(context.Background(), bigcache.DefaultConfig(opts.LocalTTL))
		if err != nil {
			log.WithError(err).Warn("Failed to init local cache tier, continuing without it")
		} else {
			c.local = localCache
		}
	}

	return c
}

// EnableBloomFilter installs a penetration filter sized for n entities.
// Ids absent from the filter are rejected without touching Redis or the
// loader; existing ids must be registered via AddToFilter.
func (c *Client) EnableBloomFilter(n uint, fp float64) {
	c.filterMu.Lock()
	defer c.filterMu.Unlock()
	c.filter = bloom.NewWithEstimates(n, fp)
}

// AddToFilter registers an existing cache key with the bloom filter
func (c *Client) AddToFilter(key string) {
	c.filterMu.Lock()
	defer c.filterMu.Unlock()
	if c.filter != nil {
		c.filter.AddString(key)
	}
}

func (c *Client) filterRejects(key string) bool {
	c.filterMu.RLock()
	defer c.filterMu.RUnlock()
	return c.filter != nil && !c.filter.TestString(key)
}

// Set serializes value and writes it with a physical TTL, overwriting any
// existing entry.
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// SetWithLogicalExpire wraps value with expireAt = now + ttl and writes it
// without a store-managed TTL.
func (c *Client) SetWithLogicalExpire(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	wrapped, err := json.Marshal(redisValue{
		Data:     data,
		ExpireAt: time.Now().Add(ttl),
	})
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, key, wrapped, 0).Err()
}

// Delete removes a cache entry (and its local-tier copy)
func (c *Client) Delete(ctx context.Context, key string) error {
	if c.local != nil {
		_ = c.local.Delete(key)
	}
	return c.rdb.Del(ctx, key).Err()
}

// jittered randomizes a TTL by up to JitterRatio
func (c *Client) jittered(ttl time.Duration) time.Duration {
	jitter := time.Duration(rand.Int63n(int64(float64(ttl)*c.opts.JitterRatio) + 1))
	return ttl + jitter
}

// QueryWithPassThrough reads prefix+id through the cache, caching an empty
// marker for entities the loader reports as absent so repeated misses for
// nonexistent keys never reach the database more than once per NullTTL
// window. Loader failures propagate without any cache write. The loader
// signals absence by returning (nil, nil).
func QueryWithPassThrough[T any, ID any](
	ctx context.Context, c *Client, prefix string, id ID,
	loader func(context.Context, ID) (*T, error), ttl time.Duration,
) (*T, error) {
	key := prefix + fmt.Sprint(id)

	if c.filterRejects(key) {
		return nil, ErrNotFound
	}

	if c.local != nil {
		if data, err := c.local.Get(key); err == nil {
			var value T
			if err := json.Unmarshal(data, &value); err == nil {
				return &value, nil
			}
		}
	}

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		if len(data) == 0 {
			// Negative-cache marker: known absent, do not call the loader.
			return nil, ErrNotFound
		}
		var value T
		if err := json.Unmarshal(data, &value); err != nil {
			return nil, err
		}
		c.setLocal(key, data)
		return &value, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, err
	}

	value, err := loader(ctx, id)
	if err != nil {
		return nil, err
	}
	if value == nil {
		if err := c.rdb.Set(ctx, key, "", c.opts.NullTTL).Err(); err != nil {
			log.WithError(err).Warnf("Failed to write negative-cache marker %s", key)
		}
		return nil, ErrNotFound
	}

	if err := c.Set(ctx, key, value, c.jittered(ttl)); err != nil {
		return nil, err
	}
	c.AddToFilter(key)
	if data, err := json.Marshal(value); err == nil {
		c.setLocal(key, data)
	}

	return value, nil
}

// QueryWithLogicalExpire reads a pre-warmed key and treats staleness as an
// application concern: expired values are still returned immediately while
// at most one caller per key rebuilds in the background. A cold miss means
// the key was never warmed and yields ErrNotFound rather than a database
// fallthrough.
func QueryWithLogicalExpire[T any, ID any](
	ctx context.Context, c *Client, prefix string, id ID,
	loader func(context.Context, ID) (*T, error), ttl time.Duration,
) (*T, error) {
	key := prefix + fmt.Sprint(id)

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var wrapped redisValue
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}

	var value T
	if err := json.Unmarshal(wrapped.Data, &value); err != nil {
		return nil, err
	}

	if wrapped.ExpireAt.After(time.Now()) {
		return &value, nil
	}

	// Expired: try to become the single rebuilder for this key. Losers and
	// winners alike return the stale value immediately; nobody waits.
	mutex := lock.NewRedisLock(c.rdb, "cache:"+key)
	acquired, err := mutex.TryLock(ctx, c.opts.RebuildLease)
	if err != nil {
		log.WithError(err).Warnf("Rebuild lock attempt failed for %s", key)
		return &value, nil
	}

	if acquired {
		submitted := c.pool.Submit(func() {
			rebuildCtx, cancel := context.WithTimeout(context.Background(), c.opts.RebuildLease)
			defer cancel()
			defer func() {
				if err := mutex.Unlock(rebuildCtx); err != nil {
					log.WithError(err).Warnf("Failed to release rebuild lock for %s", key)
				}
			}()

			fresh, err := loader(rebuildCtx, id)
			if err != nil {
				log.WithError(err).Errorf("Cache rebuild failed for %s", key)
				monitor.ObserveCacheRebuild("error")
				return
			}
			if fresh == nil {
				monitor.ObserveCacheRebuild("absent")
				return
			}
			if err := c.SetWithLogicalExpire(rebuildCtx, key, fresh, ttl); err != nil {
				log.WithError(err).Errorf("Cache rebuild write failed for %s", key)
				monitor.ObserveCacheRebuild("error")
				return
			}
			monitor.ObserveCacheRebuild("ok")
		})
		if !submitted {
			// Nobody will rebuild this round; free the lock for the next reader.
			if err := mutex.Unlock(ctx); err != nil {
				log.WithError(err).Warnf("Failed to release rebuild lock for %s", key)
			}
		}
	}

	return &value, nil
}

func (c *Client) setLocal(key string, data []byte) {
	if c.local != nil {
		_ = c.local.Set(key, data)
	}
}
