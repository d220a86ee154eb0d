package order

import (
	"context"

	"gorm.io/gorm"

	"dealhub/internal/model"
	"dealhub/internal/repository"
	"dealhub/pkg/log"
)

// OrderService voucher order persistence
type OrderService interface {
	// CreateVoucherOrder runs the local persistence step for one admitted
	// order inside a single transaction: re-verify one-order-per-user,
	// conditionally decrement stock, insert the order. Integrity anomalies
	// (duplicate, exhausted stock) are terminal: logged and swallowed so
	// the queue entry is acknowledged instead of redelivered forever.
	// Infrastructure errors are returned and leave the entry pending.
	CreateVoucherOrder(ctx context.Context, order *model.VoucherOrder) error

	// GetByID gets an order
	GetByID(ctx context.Context, id uint64) (*model.VoucherOrder, error)

	// ListUserOrders lists a user's orders
	ListUserOrders(ctx context.Context, userID uint64, page, pageSize int) ([]*model.VoucherOrder, int64, error)
}

type orderService struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	voucherRepo repository.VoucherRepository
}

// NewOrderService creates an order service
func NewOrderService(db *gorm.DB, orderRepo repository.OrderRepository, voucherRepo repository.VoucherRepository) OrderService {
	return &orderService{
		db:          db,
		orderRepo:   orderRepo,
		voucherRepo: voucherRepo,
	}
}

// CreateVoucherOrder persists one admitted order. The admission script has
// already deduplicated and reserved stock in Redis; the database checks
// here are defense in depth because the relational store is the
// durability authority.
func (s *orderService) CreateVoucherOrder(ctx context.Context, order *model.VoucherOrder) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.orderRepo.ExistsByUserAndVoucher(ctx, tx, order.UserID, order.VoucherID)
		if err != nil {
			return err
		}
		if exists {
			log.WithFields(map[string]interface{}{
				"user_id":    order.UserID,
				"voucher_id": order.VoucherID,
			}).Warn("Order already persisted for this user and voucher")
			return nil
		}

		affected, err := s.voucherRepo.DecrementStockIfPositive(ctx, tx, order.VoucherID)
		if err != nil {
			return err
		}
		if affected == 0 {
			// Admission said yes but the durable stock is gone: the fast
			// path and the database diverged. Drop this order, corrupt
			// nothing.
			log.WithFields(map[string]interface{}{
				"order_id":   order.ID,
				"voucher_id": order.VoucherID,
			}).Error("Stock exhausted at persistence time, dropping order")
			return nil
		}

		return s.orderRepo.Create(ctx, tx, order)
	})
}

// GetByID gets an order
func (s *orderService) GetByID(ctx context.Context, id uint64) (*model.VoucherOrder, error) {
	return s.orderRepo.GetByID(ctx, id)
}

// ListUserOrders lists a user's orders
func (s *orderService) ListUserOrders(ctx context.Context, userID uint64, page, pageSize int) ([]*model.VoucherOrder, int64, error) {
	return s.orderRepo.ListUserOrders(ctx, userID, page, pageSize)
}
