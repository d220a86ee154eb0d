package voucher

import (
	"context"
	"errors"
	"strconv"
	"time"

	"dealhub/internal/cache"
	"dealhub/internal/model"
	"dealhub/internal/redis"
	"dealhub/internal/repository"
	"dealhub/pkg/log"
)

// ErrVoucherNotFound the voucher does not exist
var ErrVoucherNotFound = errors.New("voucher not found")

const voucherTTL = 30 * time.Minute

// VoucherService voucher catalog reads and writes
type VoucherService interface {
	// Create publishes a voucher
	Create(ctx context.Context, voucher *model.Voucher) error

	// GetByID reads a voucher through the pass-through cache
	GetByID(ctx context.Context, id uint64) (*model.Voucher, error)

	// ListByShop lists a shop's vouchers
	ListByShop(ctx context.Context, shopID uint64) ([]*model.Voucher, error)
}

type voucherService struct {
	repo  repository.VoucherRepository
	cache *cache.Client
}

// NewVoucherService creates a voucher service
func NewVoucherService(repo repository.VoucherRepository, cacheClient *cache.Client) VoucherService {
	return &voucherService{repo: repo, cache: cacheClient}
}

// Create creates a voucher
func (s *voucherService) Create(ctx context.Context, v *model.Voucher) error {
	if err := s.repo.Create(ctx, v); err != nil {
		return err
	}

	// New ids must reach the penetration filter or reads would reject them
	s.cache.AddToFilter(redis.CacheVoucherKey + strconv.FormatUint(v.ID, 10))

	log.WithFields(map[string]interface{}{
		"voucher_id": v.ID,
		"shop_id":    v.ShopID,
		"stock":      v.Stock,
	}).Info("Voucher created")
	return nil
}

func (s *voucherService) load(ctx context.Context, id uint64) (*model.Voucher, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrVoucherNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

// GetByID gets a voucher through the cache
func (s *voucherService) GetByID(ctx context.Context, id uint64) (*model.Voucher, error) {
	v, err := cache.QueryWithPassThrough(ctx, s.cache, redis.CacheVoucherKey, id, s.load, voucherTTL)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}
	return v, nil
}

// ListByShop lists a shop's vouchers
func (s *voucherService) ListByShop(ctx context.Context, shopID uint64) ([]*model.Voucher, error) {
	return s.repo.ListByShop(ctx, shopID)
}
