package model

import "time"

// VoucherOrder order status const
const (
	OrderStatusUnpaid    = 1
	OrderStatusPaid      = 2
	OrderStatusCancelled = 3
	OrderStatusRefunded  = 4
)

// VoucherOrder flash-sale order model. The primary key is generated up
// front by the id generator, never auto-incremented, so it can be carried
// through the admission script and the queue entry unchanged. At most one
// row per (user_id, voucher_id) ever exists.
type VoucherOrder struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	UserID    uint64     `gorm:"type:bigint unsigned;not null;uniqueIndex:idx_user_voucher" json:"user_id"`
	VoucherID uint64     `gorm:"type:bigint unsigned;not null;uniqueIndex:idx_user_voucher" json:"voucher_id"`
	PayValue  int64      `gorm:"type:bigint;not null;default:0" json:"pay_value"` // cents
	Status    int8       `gorm:"type:tinyint;not null;default:1" json:"status"`
	PaidAt    *time.Time `gorm:"type:timestamp" json:"paid_at,omitempty"`
	CreatedAt time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName set name
func (VoucherOrder) TableName() string {
	return "voucher_orders"
}

// IsPaid check order is paid
func (o *VoucherOrder) IsPaid() bool {
	return o.Status == OrderStatusPaid
}
