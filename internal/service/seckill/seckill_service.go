package seckill

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"dealhub/internal/model"
	"dealhub/internal/monitor"
	"dealhub/internal/redis"
	"dealhub/internal/repository"
	"dealhub/pkg/idgen"
	"dealhub/pkg/log"
)

// Business rejections. These are outcomes, not faults: the caller gets a
// specific reason synchronously and nothing is retried.
var (
	// ErrSoldOut stock exhausted
	ErrSoldOut = errors.New("insufficient stock")
	// ErrDuplicateOrder the user already purchased this voucher
	ErrDuplicateOrder = errors.New("duplicate order")
	// ErrSaleNotStarted outside the sale window
	ErrSaleNotStarted = errors.New("sale not started or already ended")
)

// SeckillService flash-sale admission
type SeckillService interface {
	// Admit decides one purchase request. On success the order is durably
	// queued and the order id returned; the caller does not wait for
	// database persistence. Ordering across concurrent callers is whatever
	// the atomic script serializes, no fairness is implied.
	Admit(ctx context.Context, voucherID, userID uint64) (int64, error)

	// Prewarm seeds the Redis stock counter for a voucher before its sale
	// window opens
	Prewarm(ctx context.Context, voucherID uint64) error

	// EndSale expires the stock counter and the served-user set once a
	// sale window has closed, bounding their memory footprint
	EndSale(ctx context.Context, voucherID uint64, retention time.Duration) error
}

type seckillService struct {
	voucherRepo repository.VoucherRepository
	idGen       *idgen.Generator
	rdb         redisv9.Cmdable
	stream      string
}

// NewSeckillService creates a seckill service. stream names the order
// stream the admission script appends to.
func NewSeckillService(
	voucherRepo repository.VoucherRepository,
	idGen *idgen.Generator,
	rdb redisv9.Cmdable,
	stream string,
) SeckillService {
	return &seckillService{
		voucherRepo: voucherRepo,
		idGen:       idGen,
		rdb:         rdb,
		stream:      stream,
	}
}

// Admit runs the admission pipeline: generate the order id up front, then
// run the atomic stock-and-duplicate check. The script itself appends the
// queue entry on admission, so stock is never consumed without a matching
// entry in the stream.
func (s *seckillService) Admit(ctx context.Context, voucherID, userID uint64) (int64, error) {
	start := time.Now()

	orderID, err := s.idGen.NextID(ctx, "order")
	if err != nil {
		monitor.ObserveAdmission("error", start)
		return 0, fmt.Errorf("failed to generate order id: %w", err)
	}

	code, err := redis.Admit(ctx, s.rdb, s.stream, voucherID, userID, orderID)
	if err != nil {
		monitor.ObserveAdmission("error", start)
		return 0, fmt.Errorf("admission script failed: %w", err)
	}

	switch code {
	case redis.AdmitSoldOut:
		monitor.ObserveAdmission("sold_out", start)
		return 0, ErrSoldOut
	case redis.AdmitDuplicate:
		monitor.ObserveAdmission("duplicate", start)
		return 0, ErrDuplicateOrder
	}

	log.WithFields(map[string]interface{}{
		"order_id":   orderID,
		"voucher_id": voucherID,
		"user_id":    userID,
	}).Info("Purchase admitted")

	monitor.ObserveAdmission("admitted", start)
	return orderID, nil
}

// Prewarm loads the voucher and seeds seckill:stock:<id> with its stock
func (s *seckillService) Prewarm(ctx context.Context, voucherID uint64) error {
	voucher, err := s.voucherRepo.GetByID(ctx, voucherID)
	if err != nil {
		return err
	}

	if voucher.Status != model.VoucherStatusOn {
		return ErrSaleNotStarted
	}

	key := redis.SeckillStockKey + strconv.FormatUint(voucherID, 10)
	if err := s.rdb.Set(ctx, key, voucher.Stock, 0).Err(); err != nil {
		return fmt.Errorf("failed to seed stock key: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"voucher_id": voucherID,
		"stock":      voucher.Stock,
	}).Info("Voucher stock prewarmed")
	return nil
}

// EndSale lets the stock counter and served-user set expire after the sale
// window closes. The set is the duplicate-order authority during the sale,
// so a generous retention is expected.
func (s *seckillService) EndSale(ctx context.Context, voucherID uint64, retention time.Duration) error {
	id := strconv.FormatUint(voucherID, 10)

	if err := s.rdb.Expire(ctx, redis.SeckillStockKey+id, retention).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, redis.SeckillOrderKey+id, retention).Err()
}
