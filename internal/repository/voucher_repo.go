package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"dealhub/internal/model"
)

// ErrVoucherNotFound returned when a voucher does not exist
var ErrVoucherNotFound = errors.New("voucher not found")

// VoucherRepository voucher repository interface
type VoucherRepository interface {
	// Create voucher
	Create(ctx context.Context, voucher *model.Voucher) error

	// Get voucher by ID
	GetByID(ctx context.Context, id uint64) (*model.Voucher, error)

	// List vouchers of a shop
	ListByShop(ctx context.Context, shopID uint64) ([]*model.Voucher, error)

	// List all voucher ids, used to seed the cache penetration filter
	ListIDs(ctx context.Context) ([]uint64, error)

	// Decrement stock only while it is still positive; returns rows affected.
	// Zero rows means the optimistic guard rejected the decrement.
	DecrementStockIfPositive(ctx context.Context, tx *gorm.DB, voucherID uint64) (int64, error)
}

type voucherRepository struct {
	db *gorm.DB
}

// NewVoucherRepository creates a voucher repository
func NewVoucherRepository(db *gorm.DB) VoucherRepository {
	return &voucherRepository{db: db}
}

// Create creates a voucher
func (r *voucherRepository) Create(ctx context.Context, voucher *model.Voucher) error {
	return r.db.WithContext(ctx).Create(voucher).Error
}

// GetByID gets a voucher by ID
func (r *voucherRepository) GetByID(ctx context.Context, id uint64) (*model.Voucher, error) {
	var voucher model.Voucher
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&voucher).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, err
	}
	return &voucher, nil
}

// ListByShop lists vouchers of a shop
func (r *voucherRepository) ListByShop(ctx context.Context, shopID uint64) ([]*model.Voucher, error) {
	var vouchers []*model.Voucher
	err := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("created_at DESC").
		Find(&vouchers).Error
	return vouchers, err
}

// ListIDs lists all voucher ids
func (r *voucherRepository) ListIDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&model.Voucher{}).
		Pluck("id", &ids).Error
	return ids, err
}

// DecrementStockIfPositive runs the conditional decrement. The tx argument
// lets the persistence step run the guard inside its own transaction; pass
// nil to use the repository's connection.
func (r *voucherRepository) DecrementStockIfPositive(ctx context.Context, tx *gorm.DB, voucherID uint64) (int64, error) {
	db := tx
	if db == nil {
		db = r.db.WithContext(ctx)
	}

	result := db.Model(&model.Voucher{}).
		Where("id = ? AND stock > 0", voucherID).
		UpdateColumn("stock", gorm.Expr("stock - ?", 1))

	return result.RowsAffected, result.Error
}
