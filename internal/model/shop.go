package model

import "time"

// Shop merchant shop model
type Shop struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	TypeID    uint64    `gorm:"type:bigint unsigned;not null;index" json:"type_id"`
	Address   string    `gorm:"type:varchar(255)" json:"address"`
	AvgPrice  int64     `gorm:"type:bigint;default:0" json:"avg_price"` // cents
	Score     int       `gorm:"type:int;default:0" json:"score"`        // 0-50, one decimal scaled by 10
	Comments  int       `gorm:"type:int;default:0" json:"comments"`
	OpenHours string    `gorm:"type:varchar(64)" json:"open_hours"`
	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName set name
func (Shop) TableName() string {
	return "shops"
}
