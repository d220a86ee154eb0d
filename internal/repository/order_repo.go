package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"dealhub/internal/model"
)

// ErrOrderNotFound returned when an order does not exist
var ErrOrderNotFound = errors.New("order not found")

// OrderRepository voucher order repository interface
type OrderRepository interface {
	// Create order
	Create(ctx context.Context, tx *gorm.DB, order *model.VoucherOrder) error

	// Get order by ID
	GetByID(ctx context.Context, id uint64) (*model.VoucherOrder, error)

	// Check whether an order already exists for (user, voucher)
	ExistsByUserAndVoucher(ctx context.Context, tx *gorm.DB, userID, voucherID uint64) (bool, error)

	// List user orders
	ListUserOrders(ctx context.Context, userID uint64, page, pageSize int) ([]*model.VoucherOrder, int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create creates an order
func (r *orderRepository) Create(ctx context.Context, tx *gorm.DB, order *model.VoucherOrder) error {
	db := tx
	if db == nil {
		db = r.db.WithContext(ctx)
	}
	return db.Create(order).Error
}

// GetByID gets an order by ID
func (r *orderRepository) GetByID(ctx context.Context, id uint64) (*model.VoucherOrder, error) {
	var order model.VoucherOrder
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// ExistsByUserAndVoucher checks the one-order-per-user-per-voucher rule
func (r *orderRepository) ExistsByUserAndVoucher(ctx context.Context, tx *gorm.DB, userID, voucherID uint64) (bool, error) {
	db := tx
	if db == nil {
		db = r.db.WithContext(ctx)
	}

	var count int64
	err := db.Model(&model.VoucherOrder{}).
		Where("user_id = ? AND voucher_id = ?", userID, voucherID).
		Count(&count).Error

	return count > 0, err
}

// ListUserOrders lists user orders
func (r *orderRepository) ListUserOrders(ctx context.Context, userID uint64, page, pageSize int) ([]*model.VoucherOrder, int64, error) {
	var orders []*model.VoucherOrder
	var total int64

	offset := (page - 1) * pageSize

	db := r.db.WithContext(ctx).
		Model(&model.VoucherOrder{}).
		Where("user_id = ?", userID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&orders).Error

	return orders, total, err
}
