package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"dealhub/internal/model"
)

// ErrShopNotFound returned when a shop does not exist
var ErrShopNotFound = errors.New("shop not found")

// ShopRepository shop repository interface
type ShopRepository interface {
	// Get shop by ID; returns ErrShopNotFound for missing rows
	GetByID(ctx context.Context, id uint64) (*model.Shop, error)

	// Update shop
	Update(ctx context.Context, shop *model.Shop) error

	// List shops by type with pagination
	ListByType(ctx context.Context, typeID uint64, page, pageSize int) ([]*model.Shop, error)

	// List all shop ids, used to seed the cache penetration filter
	ListIDs(ctx context.Context) ([]uint64, error)
}

type shopRepository struct {
	db *gorm.DB
}

// NewShopRepository creates a shop repository
func NewShopRepository(db *gorm.DB) ShopRepository {
	return &shopRepository{db: db}
}

// GetByID gets a shop by ID
func (r *shopRepository) GetByID(ctx context.Context, id uint64) (*model.Shop, error) {
	var shop model.Shop
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&shop).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}
	return &shop, nil
}

// Update updates a shop
func (r *shopRepository) Update(ctx context.Context, shop *model.Shop) error {
	return r.db.WithContext(ctx).Save(shop).Error
}

// ListByType lists shops by type
func (r *shopRepository) ListByType(ctx context.Context, typeID uint64, page, pageSize int) ([]*model.Shop, error) {
	var shops []*model.Shop
	err := r.db.WithContext(ctx).
		Where("type_id = ?", typeID).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&shops).Error
	return shops, err
}

// ListIDs lists all shop ids
func (r *shopRepository) ListIDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&model.Shop{}).
		Pluck("id", &ids).Error
	return ids, err
}
