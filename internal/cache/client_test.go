package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testShop struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

func setupClient(t *testing.T) (*miniredis.Miniredis, *Client) {
	s, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})

	pool := NewRebuildPool(2)

	t.Cleanup(func() {
		pool.Stop()
		rdb.Close()
		s.Close()
	})

	return s, NewClient(rdb, pool, Options{
		NullTTL:      time.Minute,
		JitterRatio:  0.1,
		RebuildLease: time.Second,
	})
}

func TestQueryWithPassThrough(t *testing.T) {
	ctx := context.Background()

	t.Run("MissLoadsAndCaches", func(t *testing.T) {
		s, c := setupClient(t)

		var calls atomic.Int32
		loader := func(ctx context.Context, id uint64) (*testShop, error) {
			calls.Add(1)
			return &testShop{ID: id, Name: "cafe"}, nil
		}

		got, err := QueryWithPassThrough(ctx, c, "cache:shop:", uint64(1), loader, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "cafe", got.Name)
		assert.Equal(t, int32(1), calls.Load())

		// Second read is served from Redis, not the loader
		got, err = QueryWithPassThrough(ctx, c, "cache:shop:", uint64(1), loader, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "cafe", got.Name)
		assert.Equal(t, int32(1), calls.Load())

		assert.True(t, s.Exists("cache:shop:1"))
	})

	t.Run("AbsentEntityIsNegativelyCached", func(t *testing.T) {
		s, c := setupClient(t)

		var calls atomic.Int32
		loader := func(ctx context.Context, id uint64) (*testShop, error) {
			calls.Add(1)
			return nil, nil
		}

		_, err := QueryWithPassThrough(ctx, c, "cache:shop:", uint64(404), loader, time.Minute)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, int32(1), calls.Load())

		// The marker absorbs the repeat probe
		_, err = QueryWithPassThrough(ctx, c, "cache:shop:", uint64(404), loader, time.Minute)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, int32(1), calls.Load())

		val, err := s.Get("cache:shop:404")
		require.NoError(t, err)
		assert.Empty(t, val)
	})

	t.Run("LoaderErrorPropagatesWithoutCaching", func(t *testing.T) {
		s, c := setupClient(t)

		boom := errors.New("db down")
		loader := func(ctx context.Context, id uint64) (*testShop, error) {
			return nil, boom
		}

		_, err := QueryWithPassThrough(ctx, c, "cache:shop:", uint64(2), loader, time.Minute)
		assert.ErrorIs(t, err, boom)
		assert.False(t, s.Exists("cache:shop:2"))
	})

	t.Run("BloomFilterRejectsUnknownIds", func(t *testing.T) {
		_, c := setupClient(t)
		c.EnableBloomFilter(1000, 0.01)

		var calls atomic.Int32
		loader := func(ctx context.Context, id uint64) (*testShop, error) {
			calls.Add(1)
			return &testShop{ID: id}, nil
		}

		// Unregistered id never reaches Redis or the loader
		_, err := QueryWithPassThrough(ctx, c, "cache:shop:", uint64(9), loader, time.Minute)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, int32(0), calls.Load())

		// Registered id passes through
		c.AddToFilter("cache:shop:10")
		got, err := QueryWithPassThrough(ctx, c, "cache:shop:", uint64(10), loader, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), got.ID)
	})
}

func TestQueryWithLogicalExpire(t *testing.T) {
	ctx := context.Background()

	t.Run("ColdMissYieldsNotFound", func(t *testing.T) {
		_, c := setupClient(t)

		loader := func(ctx context.Context, id uint64) (*testShop, error) {
			t.Fatal("loader must not run on a cold miss")
			return nil, nil
		}

		_, err := QueryWithLogicalExpire(ctx, c, "cache:shop:", uint64(1), loader, time.Minute)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("FreshValueReturnedDirectly", func(t *testing.T) {
		_, c := setupClient(t)

		require.NoError(t, c.SetWithLogicalExpire(ctx, "cache:shop:1", &testShop{ID: 1, Name: "fresh"}, time.Minute))

		loader := func(ctx context.Context, id uint64) (*testShop, error) {
			t.Fatal("loader must not run while the value is fresh")
			return nil, nil
		}

		got, err := QueryWithLogicalExpire(ctx, c, "cache:shop:", uint64(1), loader, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "fresh", got.Name)
	})

	t.Run("StaleValueServedWhileRebuilding", func(t *testing.T) {
		_, c := setupClient(t)

		// Already logically expired
		require.NoError(t, c.SetWithLogicalExpire(ctx, "cache:shop:1", &testShop{ID: 1, Name: "stale"}, -time.Minute))

		rebuilt := make(chan struct{})
		loader := func(ctx context.Context, id uint64) (*testShop, error) {
			defer close(rebuilt)
			return &testShop{ID: id, Name: "rebuilt"}, nil
		}

		got, err := QueryWithLogicalExpire(ctx, c, "cache:shop:", uint64(1), loader, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "stale", got.Name, "stale value is returned immediately")

		select {
		case <-rebuilt:
		case <-time.After(2 * time.Second):
			t.Fatal("background rebuild never ran")
		}

		// The refreshed value lands shortly after the loader returns
		require.Eventually(t, func() bool {
			fresh, err := QueryWithLogicalExpire(ctx, c, "cache:shop:", uint64(1), loader, time.Minute)
			return err == nil && fresh.Name == "rebuilt"
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("SingleRebuilderPerKey", func(t *testing.T) {
		_, c := setupClient(t)

		require.NoError(t, c.SetWithLogicalExpire(ctx, "cache:shop:1", &testShop{ID: 1, Name: "stale"}, -time.Minute))

		var calls atomic.Int32
		block := make(chan struct{})
		loader := func(ctx context.Context, id uint64) (*testShop, error) {
			calls.Add(1)
			<-block
			return &testShop{ID: id, Name: "rebuilt"}, nil
		}

		// Every concurrent reader gets the stale value; only one triggers
		// the loader while the rebuild lock is held.
		for i := 0; i < 5; i++ {
			got, err := QueryWithLogicalExpire(ctx, c, "cache:shop:", uint64(1), loader, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, "stale", got.Name)
		}

		close(block)

		require.Eventually(t, func() bool {
			return calls.Load() >= 1
		}, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestSetWithLogicalExpire(t *testing.T) {
	s, c := setupClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetWithLogicalExpire(ctx, "k", &testShop{ID: 3}, time.Minute))

	// No store-managed TTL; staleness lives in the envelope
	assert.Equal(t, time.Duration(0), s.TTL("k"))

	raw, err := s.Get("k")
	require.NoError(t, err)

	var wrapped redisValue
	require.NoError(t, json.Unmarshal([]byte(raw), &wrapped))
	assert.True(t, wrapped.ExpireAt.After(time.Now()))
}

func TestDelete(t *testing.T) {
	s, c := setupClient(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "gone", &testShop{ID: 4}, time.Minute))
	require.True(t, s.Exists("gone"))

	require.NoError(t, c.Delete(ctx, "gone"))
	assert.False(t, s.Exists("gone"))
}
