package shop

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

// ErrShopNotFound the shop does not exist
var ErrShopNotFound = errors.New("shop not found")

const (
	shopTTL    = 30 * time.Minute
	hotShopTTL = 10 * time.Second
)

// ShopService shop reads behind the cache layer plus cache-coherent writes
type ShopService interface {
	// GetByID reads a shop through the pass-through cache. Missing shops are
	// negatively cached so repeated probes for dead ids stay off the database.
	GetByID(ctx context.Context, id uint64) (*model.Shop, error)

	// GetHotByID reads a pre-warmed shop with logical expiry: stale data is
	// served immediately while one background worker refreshes it. Shops
	// never warmed via WarmCache yield ErrShopNotFound.
	GetHotByID(ctx context.Context, id uint64) (*model.Shop, error)

	// WarmCache loads a shop from the database and seeds its logical-expiry
	// entry before traffic arrives
	WarmCache(ctx context.Context, id uint64, ttl time.Duration) error

	// Update writes the database first, then invalidates the cache entry
	Update(ctx context.Context, shop *model.Shop) error

	// ListByType lists shops by type with pagination
	ListByType(ctx context.Context, typeID uint64, page, pageSize int) ([]*model.Shop, error)
}

type shopService struct {
	repo  repository.ShopRepository
	cache *cache.Client
}

// NewShopService creates a shop service
func NewShopService(repo repository.ShopRepository, cacheClient *cache.Client) ShopService {
	return &shopService{repo: repo, cache: cacheClient}
}

// load adapts the repository to the cache loader contract: absence is
// (nil, nil), every other error is infrastructure.
func (s *shopService) load(ctx context.Context, id uint64) (*model.Shop, error) {
	shop, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return shop, nil
}

// GetByID gets a shop through the cache
func (s *shopService) GetByID(ctx context.Context, id uint64) (*model.Shop, error) {
	shop, err := cache.QueryWithPassThrough(ctx, s.cache, redis.CacheShopKey, id, s.load, shopTTL)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}
	return shop, nil
}

// GetHotByID gets a pre-warmed shop, tolerating staleness
func (s *shopService) GetHotByID(ctx context.Context, id uint64) (*model.Shop, error) {
	shop, err := cache.QueryWithLogicalExpire(ctx, s.cache, redis.CacheShopKey, id, s.load, hotShopTTL)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}
	return shop, nil
}

// WarmCache seeds a shop's logical-expiry cache entry
func (s *shopService) WarmCache(ctx context.Context, id uint64, ttl time.Duration) error {
	shop, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			return ErrShopNotFound
		}
		return err
	}

	key := redis.CacheShopKey + strconv.FormatUint(id, 10)
	if err := s.cache.SetWithLogicalExpire(ctx, key, shop, ttl); err != nil {
		return err
	}
	s.cache.AddToFilter(key)

	log.WithFields(map[string]interface{}{
		"shop_id": id,
		"ttl":     ttl.String(),
	}).Info("Shop cache warmed")
	return nil
}

// Update writes through the database and invalidates the cache entry. The
// order matters: deleting first would let a concurrent read repopulate the
// old value.
func (s *shopService) Update(ctx context.Context, shop *model.Shop) error {
	if shop.ID == 0 {
		return errors.New("shop id is required")
	}

	if err := s.repo.Update(ctx, shop); err != nil {
		return err
	}

	key := redis.CacheShopKey + strconv.FormatUint(shop.ID, 10)
	if err := s.cache.Delete(ctx, key); err != nil {
		// The database write succeeded; the stale entry ages out on its TTL.
		log.WithError(err).Warnf("Failed to invalidate cache entry %s", key)
	}
	return nil
}

// ListByType lists shops by type
func (s *shopService) ListByType(ctx context.Context, typeID uint64, page, pageSize int) ([]*model.Shop, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return s.repo.ListByType(ctx, typeID, page, pageSize)
}
