// Package queue provides the durable work queue behind the order pipeline.
package queue

import (
	"context"
	"errors"
)

var (
	// ErrNoMessage no message available within the bounded wait
	ErrNoMessage = errors.New("no message available")
)

// Message one delivered queue entry. Entries are immutable; they are only
// acknowledged or left pending for replay.
type Message struct {
	ID     string
	Values map[string]interface{}
}

// MessageQueue durable queue with consumer-group semantics. Delivery is
// at-least-once: an entry stays pending until acknowledged.
type MessageQueue interface {
	// Publish appends an entry to the queue
	Publish(ctx context.Context, values map[string]interface{}) (string, error)

	// Consume reads the next undelivered entry for this consumer, waiting
	// at most the configured bounded block time
	Consume(ctx context.Context) (*Message, error)

	// ConsumePending re-reads the next entry delivered to this consumer but
	// never acknowledged, with an id greater than fromID. Pass "0" to start
	// from the beginning of the pending history.
	ConsumePending(ctx context.Context, fromID string) (*Message, error)

	// Ack marks an entry consumed
	Ack(ctx context.Context, id string) error
}
