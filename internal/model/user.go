package model

import "time"

// User user model
type User struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Phone     string    `gorm:"type:varchar(16);uniqueIndex;not null" json:"phone"`
	Nickname  string    `gorm:"type:varchar(32);not null" json:"nickname"`
	Password  string    `gorm:"type:varchar(128);not null" json:"-"`
	Icon      string    `gorm:"type:varchar(255)" json:"icon"`
	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName set name
func (User) TableName() string {
	return "users"
}
