// Package consumer drains the durable order queue into the database.
package consumer

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"dealhub/internal/model"
	"dealhub/internal/monitor"
	"dealhub/internal/redis"
	"dealhub/internal/service/order"
	"dealhub/pkg/lock"
	"dealhub/pkg/log"
	"dealhub/pkg/queue"
)

// Config consumer tuning
type Config struct {
	// LockLease per-user lock lease during persistence
	LockLease time.Duration
	// LockRetries bounded acquisition retries before skipping the entry
	LockRetries int
	// LockBackoff fixed wait between retries
	LockBackoff time.Duration
	// IdleOnError pause after an infrastructure error before re-reading
	IdleOnError time.Duration
}

// OrderConsumer single background worker that reads admitted orders from
// the queue and persists them. Delivery is at-least-once; the per-user lock
// and the database recheck make processing idempotent.
type OrderConsumer struct {
	queue    queue.MessageQueue
	orders   order.OrderService
	rdb      redisv9.Cmdable
	cfg      Config
	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}
}

// NewOrderConsumer creates an order consumer
func NewOrderConsumer(q queue.MessageQueue, orders order.OrderService, rdb redisv9.Cmdable, cfg Config) *OrderConsumer {
	if cfg.LockLease == 0 {
		cfg.LockLease = 10 * time.Second
	}
	if cfg.LockBackoff == 0 {
		cfg.LockBackoff = 50 * time.Millisecond
	}
	if cfg.IdleOnError == 0 {
		cfg.IdleOnError = time.Second
	}
	return &OrderConsumer{
		queue:   q,
		orders:  orders,
		rdb:     rdb,
		cfg:     cfg,
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the consume loop in its own goroutine
func (c *OrderConsumer) Start(ctx context.Context) {
	go c.run(ctx)
}

// Stop signals the loop to exit and waits for the in-flight entry to finish
func (c *OrderConsumer) Stop() {
	c.stopOnce.Do(func() { close(c.stopped) })
	<-c.done
}

func (c *OrderConsumer) run(ctx context.Context) {
	defer close(c.done)
	log.Info("Order consumer started")

	for {
		select {
		case <-c.stopped:
			log.Info("Order consumer stopped")
			return
		case <-ctx.Done():
			log.Info("Order consumer stopped")
			return
		default:
		}

		msg, err := c.queue.Consume(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrNoMessage) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			log.WithError(err).Error("Failed to read order queue")
			c.idle(ctx)
			continue
		}

		if err := c.process(ctx, msg); err != nil {
			// Left pending; the recovery pass owns it now.
			log.WithError(err).WithField("entry_id", msg.ID).Error("Failed to process order entry")
			c.drainPending(ctx)
		}
	}
}

// process persists one entry and acks it. Malformed entries are acked and
// dropped: redelivery cannot repair them.
func (c *OrderConsumer) process(ctx context.Context, msg *queue.Message) error {
	ord, err := parseOrder(msg)
	if err != nil {
		log.WithError(err).WithField("entry_id", msg.ID).Error("Dropping malformed order entry")
		monitor.ObserveConsumer("malformed")
		return c.queue.Ack(ctx, msg.ID)
	}

	if err := c.persist(ctx, ord); err != nil {
		monitor.ObserveConsumer("error")
		return err
	}

	if err := c.queue.Ack(ctx, msg.ID); err != nil {
		monitor.ObserveConsumer("error")
		return err
	}

	monitor.ObserveConsumer("ok")
	return nil
}

// persist serializes per user with a renewing lock, then runs the
// transactional write. A single consumer never contends with itself, but
// the lock also fences admission-path rechecks and future extra consumers.
func (c *OrderConsumer) persist(ctx context.Context, ord *model.VoucherOrder) error {
	userLock := lock.NewWatchdogLock(c.rdb, redis.LockOrderKey+strconv.FormatUint(ord.UserID, 10))

	ok, err := lock.TryLockWithRetry(ctx, userLock, c.cfg.LockLease, c.cfg.LockRetries, c.cfg.LockBackoff)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("user order lock busy")
	}
	defer func() {
		if err := userLock.Unlock(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to release user order lock")
		}
	}()

	return c.orders.CreateVoucherOrder(ctx, ord)
}

// drainPending replays delivered-but-unacked entries after a processing
// failure. The offset advances past every entry it sees, so one poisoned
// entry cannot pin the pass in place.
func (c *OrderConsumer) drainPending(ctx context.Context) {
	fromID := "0"
	for {
		select {
		case <-c.stopped:
			return
		case <-ctx.Done():
			return
		default:
		}

		msg, err := c.queue.ConsumePending(ctx, fromID)
		if err != nil {
			if errors.Is(err, queue.ErrNoMessage) {
				return
			}
			log.WithError(err).Error("Failed to read pending orders")
			c.idle(ctx)
			continue
		}

		monitor.ObservePendingReplay()
		fromID = msg.ID

		if err := c.process(ctx, msg); err != nil {
			log.WithError(err).WithField("entry_id", msg.ID).Error("Failed to replay pending order entry")
			c.idle(ctx)
		}
	}
}

func (c *OrderConsumer) idle(ctx context.Context) {
	select {
	case <-time.After(c.cfg.IdleOnError):
	case <-c.stopped:
	case <-ctx.Done():
	}
}

func parseOrder(msg *queue.Message) (*model.VoucherOrder, error) {
	id, err := fieldUint(msg, "id")
	if err != nil {
		return nil, err
	}
	userID, err := fieldUint(msg, "userId")
	if err != nil {
		return nil, err
	}
	voucherID, err := fieldUint(msg, "voucherId")
	if err != nil {
		return nil, err
	}

	return &model.VoucherOrder{
		ID:        id,
		UserID:    userID,
		VoucherID: voucherID,
		Status:    model.OrderStatusUnpaid,
	}, nil
}

func fieldUint(msg *queue.Message, name string) (uint64, error) {
	raw, ok := msg.Values[name]
	if !ok {
		return 0, errors.New("missing field " + name)
	}
	s, ok := raw.(string)
	if !ok {
		return 0, errors.New("non-string field " + name)
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.New("invalid field " + name + ": " + s)
	}
	return v, nil
}
