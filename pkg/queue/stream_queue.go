package queue

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamQueue MessageQueue backed by a Redis Stream with one named
// consumer group. The stream is the durability boundary of the order
// pipeline: admitted orders survive process crashes here until acked.
type StreamQueue struct {
	client   redis.Cmdable
	stream   string
	group    string
	consumer string
	block    time.Duration
}

// StreamQueueConfig stream queue configuration
type StreamQueueConfig struct {
	Stream   string
	Group    string
	Consumer string
	// Block bounds every Consume wait so the caller can observe shutdown
	// between reads
	Block time.Duration
}

// NewStreamQueue creates a stream-backed queue
func NewStreamQueue(client redis.Cmdable, cfg StreamQueueConfig) *StreamQueue {
	if cfg.Block == 0 {
		cfg.Block = 2 * time.Second
	}
	return &StreamQueue{
		client:   client,
		stream:   cfg.Stream,
		group:    cfg.Group,
		consumer: cfg.Consumer,
		block:    cfg.Block,
	}
}

// EnsureGroup creates the consumer group (and the stream) if missing
func (q *StreamQueue) EnsureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Publish appends an entry to the stream
func (q *StreamQueue) Publish(ctx context.Context, values map[string]interface{}) (string, error) {
	return q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: values,
	}).Result()
}

// Consume reads the next undelivered entry (XREADGROUP ">") with a bounded
// block. Returns ErrNoMessage on an empty read.
func (q *StreamQueue) Consume(ctx context.Context) (*Message, error) {
	return q.read(ctx, ">", q.block)
}

// ConsumePending replays the next delivered-but-unacked entry after fromID
// for this consumer (XREADGROUP from an explicit offset). Advancing the
// offset lets the recovery pass scan past a poisoned entry instead of
// spinning on it.
func (q *StreamQueue) ConsumePending(ctx context.Context, fromID string) (*Message, error) {
	if fromID == "" {
		fromID = "0"
	}
	return q.read(ctx, fromID, 0)
}

// Ack marks an entry consumed
func (q *StreamQueue) Ack(ctx context.Context, id string) error {
	return q.client.XAck(ctx, q.stream, q.group, id).Err()
}

func (q *StreamQueue) read(ctx context.Context, offset string, block time.Duration) (*Message, error) {
	args := &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, offset},
		Count:    1,
	}
	if block > 0 {
		args.Block = block
	} else {
		args.Block = -1 // pending reads never block
	}

	streams, err := q.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoMessage
		}
		return nil, err
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, ErrNoMessage
	}

	msg := streams[0].Messages[0]
	return &Message{ID: msg.ID, Values: msg.Values}, nil
}
