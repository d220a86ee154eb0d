package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupQueue(t *testing.T) *StreamQueue {
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		s.Close()
	})

	q := NewStreamQueue(client, StreamQueueConfig{
		Stream:   "stream.orders",
		Group:    "g1",
		Consumer: "c1",
		Block:    100 * time.Millisecond,
	})
	require.NoError(t, q.EnsureGroup(context.Background()))

	return q
}

func TestStreamQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("PublishConsumeAck", func(t *testing.T) {
		q := setupQueue(t)

		id, err := q.Publish(ctx, map[string]interface{}{
			"id":        "1001",
			"userId":    "7",
			"voucherId": "42",
		})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		msg, err := q.Consume(ctx)
		require.NoError(t, err)
		assert.Equal(t, id, msg.ID)
		assert.Equal(t, "1001", msg.Values["id"])
		assert.Equal(t, "7", msg.Values["userId"])
		assert.Equal(t, "42", msg.Values["voucherId"])

		require.NoError(t, q.Ack(ctx, msg.ID))

		// Acked entries never come back through the pending list
		_, err = q.ConsumePending(ctx, "0")
		assert.ErrorIs(t, err, ErrNoMessage)
	})

	t.Run("EmptyReadReturnsNoMessage", func(t *testing.T) {
		q := setupQueue(t)

		_, err := q.Consume(ctx)
		assert.ErrorIs(t, err, ErrNoMessage)
	})

	t.Run("UnackedEntryStaysPending", func(t *testing.T) {
		q := setupQueue(t)

		id, err := q.Publish(ctx, map[string]interface{}{"id": "2001"})
		require.NoError(t, err)

		// Delivered but never acked
		msg, err := q.Consume(ctx)
		require.NoError(t, err)
		require.Equal(t, id, msg.ID)

		replayed, err := q.ConsumePending(ctx, "0")
		require.NoError(t, err)
		assert.Equal(t, id, replayed.ID)
		assert.Equal(t, "2001", replayed.Values["id"])

		require.NoError(t, q.Ack(ctx, replayed.ID))

		_, err = q.ConsumePending(ctx, "0")
		assert.ErrorIs(t, err, ErrNoMessage)
	})

	t.Run("PendingOffsetAdvancesPastEntries", func(t *testing.T) {
		q := setupQueue(t)

		first, err := q.Publish(ctx, map[string]interface{}{"id": "a"})
		require.NoError(t, err)
		second, err := q.Publish(ctx, map[string]interface{}{"id": "b"})
		require.NoError(t, err)

		// Deliver both without acking
		for i := 0; i < 2; i++ {
			_, err := q.Consume(ctx)
			require.NoError(t, err)
		}

		// Reading from the first entry's id skips it and yields the second
		msg, err := q.ConsumePending(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, second, msg.ID)
	})

	t.Run("EnsureGroupIsIdempotent", func(t *testing.T) {
		q := setupQueue(t)

		// Second creation hits BUSYGROUP and is tolerated
		assert.NoError(t, q.EnsureGroup(ctx))
	})

	t.Run("GroupIsolatesDeliveredEntries", func(t *testing.T) {
		q := setupQueue(t)

		_, err := q.Publish(ctx, map[string]interface{}{"id": "once"})
		require.NoError(t, err)

		_, err = q.Consume(ctx)
		require.NoError(t, err)

		// The entry was delivered; a second group read yields nothing new
		_, err = q.Consume(ctx)
		assert.ErrorIs(t, err, ErrNoMessage)
	})
}
