package model

import "time"

// Voucher status const
const (
	VoucherStatusOn      = 1
	VoucherStatusOff     = 2
	VoucherStatusExpired = 3
)

// Voucher flash-sale voucher model. Stock is mutated only through the
// conditional decrement in VoucherRepository.
type Voucher struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ShopID      uint64    `gorm:"type:bigint unsigned;not null;index" json:"shop_id"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	PayValue    int64     `gorm:"type:bigint;not null" json:"pay_value"`    // cents
	ActualValue int64     `gorm:"type:bigint;not null" json:"actual_value"` // cents
	Stock       int       `gorm:"type:int;not null" json:"stock"`
	Status      int8      `gorm:"type:tinyint;not null;default:1" json:"status"`
	BeginTime   time.Time `gorm:"type:timestamp;not null" json:"begin_time"`
	EndTime     time.Time `gorm:"type:timestamp;not null" json:"end_time"`
	CreatedAt   time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName set name
func (Voucher) TableName() string {
	return "vouchers"
}

// IsOnSale check the sale window is open
func (v *Voucher) IsOnSale() bool {
	now := time.Now()
	return v.Status == VoucherStatusOn && now.After(v.BeginTime) && now.Before(v.EndTime)
}
