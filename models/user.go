package models

import "time"

// User is a VIP partner, created on first Telegram login.
type User struct {
	Base
	TelegramID   int64      `gorm:"uniqueIndex;not null" json:"telegram_id"`
	StoreName    *string    `json:"store_name,omitempty"`
	ManagerName  *string    `json:"manager_name,omitempty"`
	Phone        *string    `json:"phone,omitempty"`
	City         *string    `json:"city,omitempty"`
	CustomerCode *string    `gorm:"index" json:"customer_code,omitempty"`
	VIPSince     *time.Time `gorm:"column:vip_since" json:"vip_since,omitempty"`
	IsAdmin      bool       `gorm:"not null;default:false" json:"is_admin"`

	// Only the reward ledger writes this column.
	TotalPoints int64 `gorm:"not null;default:0" json:"total_points"`
}
