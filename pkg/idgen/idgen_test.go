package idgen

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		s.Close()
	})

	return client
}

func TestNextID(t *testing.T) {
	client := setupRedis(t)
	gen := NewGenerator(client)
	ctx := context.Background()

	t.Run("MonotonicWithinSecond", func(t *testing.T) {
		first, err := gen.NextID(ctx, "order")
		require.NoError(t, err)
		second, err := gen.NextID(ctx, "order")
		require.NoError(t, err)

		assert.Greater(t, second, first)
	})

	t.Run("EmbedsCreationTime", func(t *testing.T) {
		before := time.Now().UTC().Truncate(time.Second)
		id, err := gen.NextID(ctx, "order")
		require.NoError(t, err)
		after := time.Now().UTC()

		ts := Timestamp(id)
		assert.False(t, ts.Before(before))
		assert.False(t, ts.After(after))
	})

	t.Run("IndependentBusinessKeys", func(t *testing.T) {
		a, err := gen.NextID(ctx, "biz_a")
		require.NoError(t, err)
		b, err := gen.NextID(ctx, "biz_b")
		require.NoError(t, err)

		// Each business key has its own counter starting at 1
		assert.Equal(t, int64(1), Sequence(a))
		assert.Equal(t, int64(1), Sequence(b))
	})

	t.Run("UniqueUnderConcurrency", func(t *testing.T) {
		const workers = 20
		const perWorker = 25

		var mu sync.Mutex
		seen := make(map[int64]bool)
		var wg sync.WaitGroup

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < perWorker; j++ {
					id, err := gen.NextID(ctx, "concurrent")
					assert.NoError(t, err)

					mu.Lock()
					assert.False(t, seen[id], "duplicate id %d", id)
					seen[id] = true
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Len(t, seen, workers*perWorker)
	})
}

func TestSequenceExtraction(t *testing.T) {
	client := setupRedis(t)
	gen := NewGenerator(client)

	id, err := gen.NextID(context.Background(), "extract")
	require.NoError(t, err)

	// Round-trips through the extractors
	reassembled := (id>>countBits)<<countBits | Sequence(id)
	assert.Equal(t, id, reassembled)
}
